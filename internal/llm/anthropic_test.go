package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.System == "" {
			t.Error("Expected system prompt")
		}

		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"content": [{"type": "text", "text": "{\"comments\":"}, {"type": "text", "text": " []}"}],
			"model": "claude-3-5-haiku-20241022",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "score"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != `{"comments": []}` {
		t.Errorf("Unexpected text %q", resp.Text)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("Expected 15 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_Generate_Overloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "score"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != 529 || se.Message != "overloaded_error - Overloaded" {
		t.Errorf("Unexpected error %+v", se)
	}
}

func TestAnthropicProvider_Generate_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "msg_1", "content": []}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "score"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("Expected ErrEmptyCompletion, got %v", err)
	}
}

func TestAnthropicProvider_MissingKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "msg_1", "content": [{"type": "text", "text": "Hi"}]}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on 401")
	}
}
