package speech

import (
	"context"
	"sync"
)

// MockSynthesizer records requested texts and returns canned audio.
type MockSynthesizer struct {
	mu    sync.Mutex
	texts []string
	// Fail makes every Synthesize call return a SynthesisError.
	Fail bool
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (s *MockSynthesizer) Name() string { return "mock" }

func (s *MockSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}

	s.mu.Lock()
	s.texts = append(s.texts, text)
	fail := s.Fail
	s.mu.Unlock()

	if fail {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: "mock failure"}
	}
	return Audio{Data: []byte("mock-audio:" + text), Format: "wav"}, nil
}

// Texts returns every text synthesized so far.
func (s *MockSynthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}
