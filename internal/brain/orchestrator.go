package brain

import (
	"context"
	"strings"

	"github.com/lmendes/voxgate/internal/memory"
)

// Orchestrator assembles the full message sequence for each exchange:
// system prompt, persona prompt, the bounded conversation window, then
// the current user utterance.
type Orchestrator struct {
	client        *Client
	systemPrompt  string
	personaPrompt string
}

func NewOrchestrator(client *Client, systemPrompt, personaPrompt string) *Orchestrator {
	return &Orchestrator{
		client:        client,
		systemPrompt:  strings.TrimSpace(systemPrompt),
		personaPrompt: strings.TrimSpace(personaPrompt),
	}
}

// GenerateReply produces the assistant's answer to userText given the
// recent conversation history. History arrives oldest first and is
// forwarded untouched; windowing is the caller's job.
func (o *Orchestrator) GenerateReply(ctx context.Context, history []memory.TurnRecord, userText string) (string, error) {
	messages := make([]Message, 0, len(history)+3)
	if o.systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: o.systemPrompt})
	}
	if o.personaPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: o.personaPrompt})
	}
	for _, turn := range history {
		role := RoleUser
		if turn.Role == memory.RoleAssistant {
			role = RoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userText})

	return o.client.Complete(ctx, messages)
}
