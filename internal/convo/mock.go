package convo

import (
	"context"
	"sync"

	"github.com/lmendes/voxgate/internal/memory"
)

// MockCapture records start/stop commands. Lifecycle events are fed
// to the controller by the caller, mirroring how the real transport
// works.
type MockCapture struct {
	mu         sync.Mutex
	startCalls int
	stopCalls  int
	// StartErr is returned by Start when set.
	StartErr error
	// OnStart, when set, runs on every successful Start.
	OnStart func()
}

func (c *MockCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	c.startCalls++
	err := c.StartErr
	onStart := c.OnStart
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if onStart != nil {
		onStart()
	}
	return nil
}

func (c *MockCapture) Stop() {
	c.mu.Lock()
	c.stopCalls++
	c.mu.Unlock()
}

func (c *MockCapture) StartCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startCalls
}

func (c *MockCapture) StopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCalls
}

// MockSpeaker records spoken texts. When Block is set, Speak waits
// until Block is closed or ctx is cancelled.
type MockSpeaker struct {
	mu       sync.Mutex
	spoken   []string
	speaking bool
	// Err is returned after a (possibly blocked) Speak completes.
	Err error
	// Block delays completion until closed.
	Block chan struct{}
}

func (s *MockSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.speaking = true
	block := s.Block
	err := s.Err
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *MockSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

func (s *MockSpeaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// MockResponder returns a fixed reply or error and records every
// request it sees.
type MockResponder struct {
	mu       sync.Mutex
	requests []MockRequest
	// Reply and Err shape the next response.
	Reply string
	Err   error
	// Block delays completion until closed.
	Block chan struct{}
}

// MockRequest is one recorded GenerateReply call.
type MockRequest struct {
	History []memory.TurnRecord
	Text    string
}

func (r *MockResponder) GenerateReply(ctx context.Context, history []memory.TurnRecord, userText string) (string, error) {
	r.mu.Lock()
	r.requests = append(r.requests, MockRequest{History: history, Text: userText})
	block := r.Block
	reply, err := r.Reply, r.Err
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (r *MockResponder) Requests() []MockRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MockRequest, len(r.requests))
	copy(out, r.requests)
	return out
}
