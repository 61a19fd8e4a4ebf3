package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avetisov/stratus/internal/model"
)

func TestOllamaProvider_Narrate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected stream to be false")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}

		resp := ollamaResponse{
			Model:           "llama3.1:8b",
			Response:        "Cool and breezy with all three sources in agreement.",
			Done:            true,
			PromptEvalCount: 80,
			EvalCount:       40,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.1:8b",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := NarrateRequest{
		Report: model.Report{Location: "Oslo"},
	}

	resp, err := provider.Narrate(context.Background(), req)
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}

	if resp.Text != "Cool and breezy with all three sources in agreement." {
		t.Errorf("Unexpected narrative: %s", resp.Text)
	}
	if resp.TokensUsed != 120 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Narrate_NoModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := NarrateRequest{
		Report: model.Report{Location: "Oslo"},
	}

	_, err = provider.Narrate(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error when no model specified")
	}
}

func TestOllamaProvider_Narrate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "missing-model",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := NarrateRequest{
		Report: model.Report{Location: "Oslo"},
	}

	_, err = provider.Narrate(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_TokenEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some models report no token counts
		resp := ollamaResponse{
			Model:    "llama3.1:8b",
			Response: "Short answer.",
			Done:     true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := Config{
		BaseURL: server.URL,
		Model:   "llama3.1:8b",
		Timeout: 5,
	}
	provider, err := NewOllamaProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Narrate(context.Background(), NarrateRequest{
		Report: model.Report{Location: "Oslo"},
	})
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}

	if resp.TokensUsed == 0 {
		t.Error("Expected estimated token usage when counts are absent")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Close()

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false when server is down")
	}
}

func TestNewProvider_Factory(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantNil   bool
		wantError bool
	}{
		{name: "disabled", config: Config{Provider: ""}, wantNil: true},
		{name: "ollama", config: Config{Provider: "ollama"}},
		{name: "anthropic no key", config: Config{Provider: "anthropic"}, wantError: true},
		{name: "openai no key", config: Config{Provider: "openai"}, wantError: true},
		{name: "unknown", config: Config{Provider: "bogus"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantError {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantNil && p != nil {
				t.Error("Expected nil provider")
			}
			if !tt.wantNil && p == nil {
				t.Error("Expected non-nil provider")
			}
		})
	}
}
