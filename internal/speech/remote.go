package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// RemoteOptions configures the hosted text-to-speech backend.
type RemoteOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	Timeout time.Duration
	// Transport overrides the default transport, used to route
	// synthesis through the relay. Nil means direct HTTP.
	Transport http.RoundTripper
}

// RemoteSynthesizer calls an OpenAI-compatible audio/speech endpoint.
type RemoteSynthesizer struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

func NewRemoteSynthesizer(opts RemoteOptions) (*RemoteSynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("speech: remote backend requires an api key")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := opts.Model
	if model == "" {
		model = "tts-1"
	}
	voice := opts.Voice
	if voice == "" {
		voice = "alloy"
	}
	return &RemoteSynthesizer{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		voice:   voice,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
	}, nil
}

func (s *RemoteSynthesizer) Name() string { return "remote" }

func (s *RemoteSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	payload, err := json.Marshal(speechRequest{Model: s.model, Voice: s.voice, Input: text})
	if err != nil {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Audio{}, &SynthesisError{
			Backend: s.Name(),
			Detail:  fmt.Sprintf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: fmt.Sprintf("read audio: %v", err)}
	}
	if len(data) == 0 {
		return Audio{}, &SynthesisError{Backend: s.Name(), Detail: "empty audio payload"}
	}

	return Audio{Data: data, Format: formatFromContentType(res.Header.Get("Content-Type"))}, nil
}

func formatFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return "ogg"
	default:
		return "mp3"
	}
}
