package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.ActivationPhrase != "activate" {
		t.Fatalf("ActivationPhrase = %q, want %q", cfg.ActivationPhrase, "activate")
	}
	if cfg.StopPhrase != "stop talking" {
		t.Fatalf("StopPhrase = %q, want %q", cfg.StopPhrase, "stop talking")
	}
	if cfg.MemoryDepth != 6 {
		t.Fatalf("MemoryDepth = %d, want 6", cfg.MemoryDepth)
	}
	if cfg.SpeechBackend != "auto" {
		t.Fatalf("SpeechBackend = %q, want %q", cfg.SpeechBackend, "auto")
	}
	if cfg.ChatAPIKey != "" {
		t.Fatalf("ChatAPIKey = %q, want empty default", cfg.ChatAPIKey)
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ASSIST_ACTIVATION_PHRASE", "ativar")
	t.Setenv("ASSIST_STOP_PHRASE", "pare de falar")
	t.Setenv("ASSIST_MEMORY_DEPTH", "3")
	t.Setenv("CHAT_TIMEOUT", "5s")
	t.Setenv("SPEECH_BACKEND", "remote")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ActivationPhrase != "ativar" {
		t.Fatalf("ActivationPhrase = %q, want %q", cfg.ActivationPhrase, "ativar")
	}
	if cfg.StopPhrase != "pare de falar" {
		t.Fatalf("StopPhrase = %q, want %q", cfg.StopPhrase, "pare de falar")
	}
	if cfg.MemoryDepth != 3 {
		t.Fatalf("MemoryDepth = %d, want 3", cfg.MemoryDepth)
	}
	if cfg.ChatTimeout != 5*time.Second {
		t.Fatalf("ChatTimeout = %s, want 5s", cfg.ChatTimeout)
	}
	if cfg.SpeechBackend != "remote" {
		t.Fatalf("SpeechBackend = %q, want %q", cfg.SpeechBackend, "remote")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"negative memory depth", "ASSIST_MEMORY_DEPTH", "-1"},
		{"bad memory depth", "ASSIST_MEMORY_DEPTH", "many"},
		{"bad backend", "SPEECH_BACKEND", "cassette"},
		{"bad timeout", "CHAT_TIMEOUT", "soon"},
		{"zero max tokens", "CHAT_MAX_TOKENS", "0"},
		{"tiny inactivity", "APP_SESSION_INACTIVITY_TIMEOUT", "1s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"ASSIST_ACTIVATION_PHRASE",
		"ASSIST_STOP_PHRASE",
		"ASSIST_ACTIVATION_ACK",
		"ASSIST_MEMORY_DEPTH",
		"ASSIST_SYSTEM_PROMPT",
		"ASSIST_PERSONA_PROMPT",
		"ASSIST_FAULT_RETRY_BASE",
		"ASSIST_FAULT_RETRY_CAP",
		"ASSIST_FAULT_RETRY_MAX",
		"CHAT_BASE_URL",
		"CHAT_API_KEY",
		"CHAT_MODEL",
		"CHAT_TIMEOUT",
		"CHAT_TEMPERATURE",
		"CHAT_MAX_TOKENS",
		"SPEECH_BACKEND",
		"TTS_BASE_URL",
		"TTS_API_KEY",
		"TTS_MODEL",
		"TTS_VOICE",
		"LOCAL_SYNTH_CMD",
		"LOCAL_SYNTH_ARGS",
		"RELAY_URL",
		"DATABASE_URL",
		"REDIS_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
