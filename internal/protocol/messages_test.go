package protocol

import (
	"errors"
	"testing"
)

func TestParseClientTranscript(t *testing.T) {
	raw := []byte(`{"type":"client_transcript","session_id":"s1","text":"que horas são","ts_ms":123}`)
	parsed, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	msg, ok := parsed.(ClientTranscript)
	if !ok {
		t.Fatalf("parsed type = %T, want ClientTranscript", parsed)
	}
	if msg.Text != "que horas são" {
		t.Fatalf("Text = %q, want %q", msg.Text, "que horas são")
	}
	if msg.TSMs != 123 {
		t.Fatalf("TSMs = %d, want 123", msg.TSMs)
	}
}

func TestParseClientTranscriptAllowsEmptyText(t *testing.T) {
	// Recognizers occasionally fire with blank results; the controller is
	// responsible for ignoring them, the protocol layer just delivers them.
	raw := []byte(`{"type":"client_transcript","session_id":"s1","text":""}`)
	if _, err := ParseClientMessage(raw); err != nil {
		t.Fatalf("ParseClientMessage() error = %v, want nil", err)
	}
}

func TestParseCaptureErrorRequiresCode(t *testing.T) {
	raw := []byte(`{"type":"capture_error","session_id":"s1"}`)
	if _, err := ParseClientMessage(raw); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want validation error")
	}
}

func TestParseClientControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"start"}`)
	parsed, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	msg, ok := parsed.(ClientControl)
	if !ok {
		t.Fatalf("parsed type = %T, want ClientControl", parsed)
	}
	if msg.Action != "start" {
		t.Fatalf("Action = %q, want %q", msg.Action, "start")
	}
}

func TestParseRejectsUnsupportedType(t *testing.T) {
	raw := []byte(`{"type":"speak_text","session_id":"s1","text":"hi"}`)
	if _, err := ParseClientMessage(raw); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseClientMessage() error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseRejectsMissingSession(t *testing.T) {
	raw := []byte(`{"type":"playback_ended"}`)
	if _, err := ParseClientMessage(raw); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want validation error")
	}
}
