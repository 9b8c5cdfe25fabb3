package brain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lmendes/voxgate/internal/memory"
)

func newTestClient(url, key string) *Client {
	return NewClient(ClientOptions{
		BaseURL:     url,
		APIKey:      key,
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   256,
	})
}

func TestCompleteSuccess(t *testing.T) {
	var captured completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(completionResponse{
			Choices: []completionChoice{{Message: Message{Role: RoleAssistant, Content: "hello there"}}},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	got, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello there" {
		t.Fatalf("Complete() = %q, want %q", got, "hello there")
	}
	if captured.Model != "test-model" {
		t.Fatalf("request model = %q, want %q", captured.Model, "test-model")
	}
	if captured.MaxTokens != 256 {
		t.Fatalf("request max_tokens = %d, want 256", captured.MaxTokens)
	}
}

func TestCompleteMissingCredential(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "")
	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("Complete() error = %v, want ErrNoCredential", err)
	}
}

func TestCompleteSurfacesAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "bad-key")
	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	me, ok := AsModelError(err)
	if !ok {
		t.Fatalf("Complete() error = %v, want *ModelError", err)
	}
	if me.Status != http.StatusUnauthorized {
		t.Fatalf("ModelError.Status = %d, want %d", me.Status, http.StatusUnauthorized)
	}
	if me.Message != "invalid key" {
		t.Fatalf("ModelError.Message = %q, want %q", me.Message, "invalid key")
	}
}

func TestCompleteNonJSONErrorBodyFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "key")
	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	me, ok := AsModelError(err)
	if !ok {
		t.Fatalf("Complete() error = %v, want *ModelError", err)
	}
	if me.Status != http.StatusBadGateway {
		t.Fatalf("ModelError.Status = %d, want %d", me.Status, http.StatusBadGateway)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "key")
	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if _, ok := AsModelError(err); !ok {
		t.Fatalf("Complete() error = %v, want *ModelError", err)
	}
}

func TestGenerateReplyMessageOrder(t *testing.T) {
	var captured completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(completionResponse{
			Choices: []completionChoice{{Message: Message{Role: RoleAssistant, Content: "ok"}}},
		})
	}))
	defer srv.Close()

	o := NewOrchestrator(newTestClient(srv.URL, "key"), "be helpful", "speak briefly")
	history := []memory.TurnRecord{
		{Role: memory.RoleUser, Content: "first question"},
		{Role: memory.RoleAssistant, Content: "first answer"},
	}

	got, err := o.GenerateReply(context.Background(), history, "second question")
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if got != "ok" {
		t.Fatalf("GenerateReply() = %q, want %q", got, "ok")
	}

	want := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleSystem, Content: "speak briefly"},
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "second question"},
	}
	if len(captured.Messages) != len(want) {
		t.Fatalf("len(messages) = %d, want %d", len(captured.Messages), len(want))
	}
	for i := range want {
		if captured.Messages[i] != want[i] {
			t.Fatalf("messages[%d] = %+v, want %+v", i, captured.Messages[i], want[i])
		}
	}
}

func TestGenerateReplyNoPersona(t *testing.T) {
	var captured completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(completionResponse{
			Choices: []completionChoice{{Message: Message{Role: RoleAssistant, Content: "ok"}}},
		})
	}))
	defer srv.Close()

	o := NewOrchestrator(newTestClient(srv.URL, "key"), "be helpful", "")
	if _, err := o.GenerateReply(context.Background(), nil, "hi"); err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(captured.Messages))
	}
	if captured.Messages[1].Role != RoleUser || captured.Messages[1].Content != "hi" {
		t.Fatalf("messages[1] = %+v, want user hi", captured.Messages[1])
	}
}
