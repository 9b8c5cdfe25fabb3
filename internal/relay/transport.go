package relay

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transport is an http.RoundTripper that tunnels every request through
// the relay endpoint. Callers built on *http.Client stay unaware of
// whether they talk to the network directly or through the relay.
type Transport struct {
	client *Client
}

func NewTransport(relayURL string, timeout time.Duration) *Transport {
	return &Transport{client: NewClient(relayURL, timeout)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	envelope := Request{
		URL:     req.URL.String(),
		Method:  req.Method,
		Headers: map[string]string{},
	}
	for name := range req.Header {
		envelope.Headers[name] = req.Header.Get(name)
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		envelope.Body = string(body)
	}

	res, err := t.client.Forward(req.Context(), envelope)
	if err != nil {
		return nil, err
	}

	statusText := res.StatusText
	if statusText == "" {
		statusText = http.StatusText(res.Status)
	}

	header := make(http.Header, len(res.Headers))
	for name, value := range res.Headers {
		header.Set(name, value)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", res.Status, statusText),
		StatusCode:    res.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(res.Data)),
		ContentLength: int64(len(res.Data)),
		Request:       req,
	}, nil
}
