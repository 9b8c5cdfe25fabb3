package session

import "time"

// VoiceConfig is the immutable configuration snapshot taken when a session is
// created. The controller never mutates it; changing any field means creating
// a new session.
type VoiceConfig struct {
	ActivationPhrase string `json:"activation_phrase"`
	StopPhrase       string `json:"stop_phrase"`
	ActivationAck    string `json:"activation_ack"`
	MemoryDepth      int    `json:"memory_depth"`
	SystemPrompt     string `json:"system_prompt"`
	PersonaPrompt    string `json:"persona_prompt"`
	ModelID          string `json:"model_id"`
	SpeechBackend    string `json:"speech_backend"`
	VoiceID          string `json:"voice_id"`
}

// CreateRequest defines payload for creating a new session. Empty fields fall
// back to server defaults.
type CreateRequest struct {
	UserID           string `json:"user_id"`
	ActivationPhrase string `json:"activation_phrase"`
	StopPhrase       string `json:"stop_phrase"`
	MemoryDepth      *int   `json:"memory_depth"`
	PersonaPrompt    string `json:"persona_prompt"`
	VoiceID          string `json:"voice_id"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string      `json:"session_id"`
	UserID          string      `json:"user_id"`
	Status          Status      `json:"status"`
	Voice           VoiceConfig `json:"voice"`
	StartedAt       time.Time   `json:"started_at"`
	LastActivityAt  time.Time   `json:"last_activity_at"`
	InactivityTTLMS int64       `json:"inactivity_ttl_ms"`
}
