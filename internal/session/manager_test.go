package session

import (
	"context"
	"testing"
	"time"
)

func testVoice() VoiceConfig {
	return VoiceConfig{
		ActivationPhrase: "activate",
		StopPhrase:       "stop talking",
		MemoryDepth:      4,
	}
}

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", testVoice())
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}
	if got.Voice.ActivationPhrase != "activate" {
		t.Fatalf("Voice.ActivationPhrase = %q, want %q", got.Voice.ActivationPhrase, "activate")
	}
	if got.TurnState != "idle" || got.Armed {
		t.Fatalf("new session should start idle and disarmed, got %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerSetTurnState(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", testVoice())
	if err := m.SetTurnState(s.ID, "listening_active", true); err != nil {
		t.Fatalf("SetTurnState() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnState != "listening_active" {
		t.Fatalf("TurnState = %q, want %q", got.TurnState, "listening_active")
	}
	if !got.Armed {
		t.Fatalf("Armed = false, want true")
	}
}

func TestManagerEndResetsArmed(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", testVoice())
	if err := m.SetTurnState(s.ID, "speaking", true); err != nil {
		t.Fatalf("SetTurnState() error = %v", err)
	}
	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Armed || ended.TurnState != "idle" {
		t.Fatalf("ended session should be idle and disarmed, got %+v", ended)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("u1", testVoice())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan string, 1)
	m.SetExpireHook(func(es *Session) {
		select {
		case expired <- es.ID:
		default:
		}
	})
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired ID = %q, want %q", id, s.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session was not expired by janitor")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
