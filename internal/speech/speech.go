// Package speech turns assistant text into playable audio. Backends
// share one interface so the rest of the system never knows whether
// audio came from a remote API, a local command, or a test double.
package speech

import "context"

// Audio is one finished synthesis result.
type Audio struct {
	Data   []byte
	Format string
}

// Synthesizer renders text to audio. Implementations are safe for
// concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
	Name() string
}

// SynthesisError reports a failed synthesis attempt. Callers treat it
// as a completed playback and move on rather than blocking the turn.
type SynthesisError struct {
	Backend string
	Detail  string
}

func (e *SynthesisError) Error() string {
	return "speech: " + e.Backend + " synthesis failed: " + e.Detail
}
