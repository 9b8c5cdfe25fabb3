package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice gateway.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// Conversation defaults. Each session snapshots these at creation;
	// changing them requires a new session.
	ActivationPhrase string
	StopPhrase       string
	ActivationAck    string
	MemoryDepth      int
	SystemPrompt     string
	PersonaPrompt    string

	// Chat-completion capability.
	ChatBaseURL     string
	ChatAPIKey      string
	ChatModel       string
	ChatTimeout     time.Duration
	ChatTemperature float64
	ChatMaxTokens   int

	// Speech-output capability.
	SpeechBackend  string
	TTSBaseURL     string
	TTSAPIKey      string
	TTSModel       string
	TTSVoice       string
	LocalSynthCmd  string
	LocalSynthArgs string

	// Optional HTTP relay for environments where direct vendor calls are blocked.
	RelayURL string

	// Transcript persistence. Empty means in-process only.
	DatabaseURL string
	RedisURL    string

	// Fault recovery policy for the turn-taking controller.
	FaultRetryBase time.Duration
	FaultRetryCap  time.Duration
	FaultRetryMax  int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "voxgate"),
		AllowAnyOrigin:   false,

		ActivationPhrase: envOrDefault("ASSIST_ACTIVATION_PHRASE", "activate"),
		StopPhrase:       envOrDefault("ASSIST_STOP_PHRASE", "stop talking"),
		ActivationAck:    envOrDefault("ASSIST_ACTIVATION_ACK", "Yes? I'm listening."),
		MemoryDepth:      6,
		SystemPrompt:     envOrDefault("ASSIST_SYSTEM_PROMPT", "You are a helpful voice assistant. Answer briefly; your reply will be spoken aloud."),
		PersonaPrompt:    trimmedEnv("ASSIST_PERSONA_PROMPT"),

		ChatBaseURL:     envOrDefault("CHAT_BASE_URL", "https://api.openai.com/v1"),
		ChatAPIKey:      trimmedEnv("CHAT_API_KEY"),
		ChatModel:       envOrDefault("CHAT_MODEL", "gpt-4o-mini"),
		ChatTimeout:     20 * time.Second,
		ChatTemperature: 0.7,
		ChatMaxTokens:   256,

		SpeechBackend: envOrDefault("SPEECH_BACKEND", "auto"),
		TTSBaseURL:    envOrDefault("TTS_BASE_URL", "https://api.openai.com/v1"),
		TTSAPIKey:     trimmedEnv("TTS_API_KEY"),
		TTSModel:      envOrDefault("TTS_MODEL", "tts-1"),
		TTSVoice:      envOrDefault("TTS_VOICE", "alloy"),
		// Command used by the local backend to speak text on the host
		// (e.g. "say" on macOS, "espeak-ng" on Linux).
		LocalSynthCmd:  envOrDefault("LOCAL_SYNTH_CMD", "espeak-ng"),
		LocalSynthArgs: trimmedEnv("LOCAL_SYNTH_ARGS"),

		RelayURL: trimmedEnv("RELAY_URL"),

		DatabaseURL: trimmedEnv("DATABASE_URL"),
		RedisURL:    trimmedEnv("REDIS_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		FaultRetryBase:           500 * time.Millisecond,
		FaultRetryCap:            8 * time.Second,
		FaultRetryMax:            5,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatTimeout, err = durationFromEnv("CHAT_TIMEOUT", cfg.ChatTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.FaultRetryBase, err = durationFromEnv("ASSIST_FAULT_RETRY_BASE", cfg.FaultRetryBase)
	if err != nil {
		return Config{}, err
	}
	cfg.FaultRetryCap, err = durationFromEnv("ASSIST_FAULT_RETRY_CAP", cfg.FaultRetryCap)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryDepth, err = intFromEnv("ASSIST_MEMORY_DEPTH", cfg.MemoryDepth)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatMaxTokens, err = intFromEnv("CHAT_MAX_TOKENS", cfg.ChatMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.FaultRetryMax, err = intFromEnv("ASSIST_FAULT_RETRY_MAX", cfg.FaultRetryMax)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatTemperature, err = floatFromEnv("CHAT_TEMPERATURE", cfg.ChatTemperature)
	if err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.ActivationPhrase) == "" {
		return Config{}, fmt.Errorf("ASSIST_ACTIVATION_PHRASE must not be empty")
	}
	if strings.TrimSpace(cfg.StopPhrase) == "" {
		return Config{}, fmt.Errorf("ASSIST_STOP_PHRASE must not be empty")
	}
	if cfg.MemoryDepth < 0 {
		return Config{}, fmt.Errorf("ASSIST_MEMORY_DEPTH must be >= 0")
	}
	if cfg.ChatMaxTokens <= 0 {
		return Config{}, fmt.Errorf("CHAT_MAX_TOKENS must be positive")
	}
	if cfg.ChatTimeout <= 0 {
		return Config{}, fmt.Errorf("CHAT_TIMEOUT must be positive")
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.FaultRetryMax < 0 {
		return Config{}, fmt.Errorf("ASSIST_FAULT_RETRY_MAX must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SpeechBackend)) {
	case "auto", "local", "remote", "mock":
	default:
		return Config{}, fmt.Errorf("invalid SPEECH_BACKEND: %q (expected auto|local|remote|mock)", cfg.SpeechBackend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
