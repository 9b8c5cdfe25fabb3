package convo

import (
	"context"

	"github.com/lmendes/voxgate/internal/memory"
)

// Capture issues commands to the speech-capture capability. Capture
// lifecycle events (started, transcript, ended, error) flow back into
// the controller through its Handle methods, not through this
// interface. Stop must be safe to call when capture is not active.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
}

// Speaker renders one utterance and blocks until playback completes
// or ctx is cancelled. A cancelled Speak must tear down both the
// synthesis and the playback path before returning.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Responder produces the assistant's reply for one user utterance.
// History arrives oldest first and never includes the current
// utterance. Implementations must not retry internally.
type Responder interface {
	GenerateReply(ctx context.Context, history []memory.TurnRecord, userText string) (string, error)
}

// Notifier receives user-visible side effects of controller
// transitions. Implementations must not block.
type Notifier interface {
	StateChanged(state State, armed bool)
	AssistantText(text string)
	SystemEvent(code, detail string)
	ErrorEvent(code, source string, retryable bool, detail string)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) StateChanged(State, bool)                {}
func (NopNotifier) AssistantText(string)                    {}
func (NopNotifier) SystemEvent(string, string)              {}
func (NopNotifier) ErrorEvent(string, string, bool, string) {}
