package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aus-news/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type chatRequest struct {
	MaxTokens int `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const chatResponse = `{"choices":[{"message":{"role":"assistant","content":"YES"}}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.OpenAIConfig{
		BaseURL:   srv.URL + "/v1",
		APIKey:    "test",
		Model:     "test-model",
		MaxTokens: 500,
	}, 5*time.Second, discardLogger())
}

// A small completion budget must not shrink the prompt: the full check input
// has to reach the model.
func TestCompleteSmallMaxTokensKeepsFullInput(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, chatResponse)
	})

	input := strings.Repeat("x", 4000)
	resp, err := c.Complete(context.Background(), "system", input, 10)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp != "YES" {
		t.Fatalf("unexpected response %q", resp)
	}
	if got.MaxTokens != 10 {
		t.Fatalf("expected completion bound 10, got %d", got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(got.Messages))
	}
	if sent := len(got.Messages[1].Content); sent != len(input) {
		t.Fatalf("user message truncated: sent %d of %d bytes", sent, len(input))
	}
}

// Input past the client-wide cap is bounded regardless of the per-call
// completion budget.
func TestCompleteBoundsOversizedInput(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, chatResponse)
	})

	input := strings.Repeat("x", 30000)
	if _, err := c.Complete(context.Background(), "system", input, 500); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if sent := len(got.Messages[1].Content); sent != 20000 {
		t.Fatalf("expected input capped at 20000 bytes, sent %d", sent)
	}
}
