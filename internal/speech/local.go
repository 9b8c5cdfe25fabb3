package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// LocalSynthesizer shells out to an on-host synthesis command such as
// espeak-ng. The command must write audio to stdout and take the text
// as its final argument.
type LocalSynthesizer struct {
	command string
	args    []string
}

func NewLocalSynthesizer(command string, args []string) (*LocalSynthesizer, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("speech: local backend requires a command")
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("speech: synthesis command %q not found: %w", command, err)
	}
	return &LocalSynthesizer{command: command, args: args}, nil
}

func (s *LocalSynthesizer) Name() string { return "local" }

func (s *LocalSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	args := make([]string, 0, len(s.args)+2)
	args = append(args, s.args...)
	args = append(args, "--stdout", text)

	cmd := exec.CommandContext(ctx, s.command, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: detail}
	}
	if out.Len() == 0 {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: "command produced no audio"}
	}

	return Audio{Data: out.Bytes(), Format: "wav"}, nil
}
