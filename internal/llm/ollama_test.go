package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}
		if req.Stream {
			t.Error("Expected stream=false")
		}
		if req.Format != "json" {
			t.Errorf("Expected json format, got %q", req.Format)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1:8b",
			Response:        `{"comments": []}`,
			Done:            true,
			PromptEvalCount: 20,
			EvalCount:       7,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Model: "llama3.1:8b", BaseURL: server.URL})
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
	if resp.TokensUsed != 27 {
		t.Errorf("Expected 27 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{Model: "missing", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "score"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.Message != "model 'missing' not found" {
		t.Errorf("Unexpected message %q", se.Message)
	}
	if se.Overloaded() {
		t.Error("404 must not be classified as overloaded")
	}
}

func TestOllamaProvider_Generate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "m", "response": "  ", "done": true}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{Model: "m", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "score"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("Expected ErrEmptyCompletion, got %v", err)
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	if _, err := NewOllamaProvider(Config{}); err == nil {
		t.Fatal("Expected error when model is missing")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{Model: "m", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Close()
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false when server is down")
	}
}
