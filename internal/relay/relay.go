// Package relay forwards HTTP requests through an external relay
// endpoint, for deployments where the process has no direct egress.
package relay

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

// Request is the envelope accepted by the relay endpoint.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Response is the envelope returned by the relay endpoint.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	OK         bool              `json:"ok"`
	Data       string            `json:"data"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Client speaks the relay envelope protocol directly.
type Client struct {
	relayURL   string
	httpClient *http.Client
}

func NewClient(relayURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		relayURL:   strings.TrimSpace(relayURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward sends one enveloped request through the relay. A non-2xx
// answer from the relay itself is an error; a non-2xx answer from the
// target is a normal Response with OK=false.
func (c *Client) Forward(ctx context.Context, req Request) (Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send relay request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, fmt.Errorf("relay status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode relay response: %w", err)
	}
	return out, nil
}
