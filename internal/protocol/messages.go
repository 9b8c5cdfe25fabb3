package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	// Client -> server: the thin capture/playback client reporting
	// recognizer and player lifecycle.
	TypeClientTranscript MessageType = "client_transcript"
	TypeCaptureStarted   MessageType = "capture_started"
	TypeCaptureEnded     MessageType = "capture_ended"
	TypeCaptureError     MessageType = "capture_error"
	TypePlaybackEnded    MessageType = "playback_ended"
	TypePlaybackError    MessageType = "playback_error"
	TypeClientControl    MessageType = "client_control"

	// Server -> client: controller commands and conversation output.
	TypeCaptureStart  MessageType = "capture_start"
	TypeCaptureStop   MessageType = "capture_stop"
	TypeSpeakText     MessageType = "speak_text"
	TypeSpeakAudio    MessageType = "speak_audio"
	TypeStateChanged  MessageType = "state_changed"
	TypeAssistantText MessageType = "assistant_text"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientTranscript carries one finalized recognizer result. Interim results
// are never sent; the recognizer runs with final transcripts only.
type ClientTranscript struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

type CaptureStarted struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type CaptureEnded struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type CaptureError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type PlaybackEnded struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type PlaybackError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Detail    string      `json:"detail,omitempty"`
}

// ClientControl carries explicit user actions (start listening, stop).
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type CaptureStart struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type CaptureStop struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// SpeakText instructs the client to synthesize text with its platform voice.
type SpeakText struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	Voice     string      `json:"voice,omitempty"`
}

// SpeakAudio ships server-synthesized audio for client playback.
type SpeakAudio struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	AudioBase64 string      `json:"audio_base64"`
	Format      string      `json:"format"`
}

type StateChanged struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
	Armed     bool        `json:"armed"`
}

type AssistantText struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates one client payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientTranscript:
		var msg ClientTranscript
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_transcript")
		}
		return msg, nil
	case TypeCaptureStarted:
		var msg CaptureStarted
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid capture_started")
		}
		return msg, nil
	case TypeCaptureEnded:
		var msg CaptureEnded
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid capture_ended")
		}
		return msg, nil
	case TypeCaptureError:
		var msg CaptureError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Code == "" {
			return nil, errors.New("invalid capture_error")
		}
		return msg, nil
	case TypePlaybackEnded:
		var msg PlaybackEnded
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid playback_ended")
		}
		return msg, nil
	case TypePlaybackError:
		var msg PlaybackError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid playback_error")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || strings.TrimSpace(msg.Action) == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
