package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
)

func newTestOllama(t *testing.T, serverURL, model string) *OllamaProvider {
	t.Helper()
	p, err := NewOllama(serverURL, model)
	if err != nil {
		t.Fatalf("NewOllama(%q, %q): %v", serverURL, model, err)
	}
	return p
}

func TestNewOllama(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		model   string
		wantErr bool
	}{
		{"valid localhost", "http://localhost:11434", "mistral:7b-instruct", false},
		{"valid https", "https://ollama.example.com:443", "llama3.2:latest", false},
		{"empty host accepted", "", "mistral:7b-instruct", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOllama(tt.host, tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewOllama() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p == nil {
				t.Error("NewOllama() returned nil provider without error")
			}
		})
	}
}

func TestOllamaNameAndCapabilities(t *testing.T) {
	p, _ := NewOllama(DefaultOllamaHost, "test")

	if got := p.Name(); got != "ollama" {
		t.Errorf("Name() = %q, want %q", got, "ollama")
	}

	gotCaps := p.Capabilities()
	wantCaps := Capabilities{
		Streaming:         true,
		RepetitionPenalty: true,
	}
	if gotCaps != wantCaps {
		t.Errorf("Capabilities() = %+v, want %+v", gotCaps, wantCaps)
	}
}

func TestOllamaAvailable(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name:  "model found",
			model: "mistral:7b-instruct",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := api.ListResponse{
					Models: []api.ListModelResponse{
						{Name: "mistral:7b-instruct"},
						{Name: "llama3.2:latest"},
					},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
		},
		{
			name:  "model not found",
			model: "missing-model",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := api.ListResponse{
					Models: []api.ListModelResponse{{Name: "mistral:7b-instruct"}},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantErr: "not found",
		},
		{
			name:  "server error",
			model: "mistral:7b-instruct",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			},
			wantErr: "cannot reach Ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := newTestOllama(t, srv.URL, tt.model)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := p.Available(ctx)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Available() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Available() expected error containing %q, got nil", tt.wantErr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Available() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func writeNDJSON(w http.ResponseWriter, chunks ...api.GenerateResponse) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		_ = enc.Encode(c)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func TestOllamaStream(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantTokens []string
		wantErr    string
	}{
		{
			name: "streams chunks in order",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeNDJSON(w,
					api.GenerateResponse{Model: "mistral", Response: "I'm "},
					api.GenerateResponse{Model: "mistral", Response: ""},
					api.GenerateResponse{Model: "mistral", Response: "here."},
					api.GenerateResponse{Model: "mistral", Done: true},
				)
			},
			wantTokens: []string{"I'm ", "here."},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "model crashed"})
			},
			wantErr: "ollama generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := newTestOllama(t, srv.URL, "mistral")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var tokens []string
			var streamErr error
			for tok, err := range p.Stream(ctx, testRequest()) {
				if err != nil {
					streamErr = err
					break
				}
				tokens = append(tokens, tok)
			}

			if tt.wantErr != "" {
				if streamErr == nil {
					t.Fatalf("Stream() expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(streamErr.Error(), tt.wantErr) {
					t.Errorf("Stream() error = %q, want substring %q", streamErr.Error(), tt.wantErr)
				}
				return
			}
			if streamErr != nil {
				t.Fatalf("Stream() unexpected error: %v", streamErr)
			}
			if !reflect.DeepEqual(tokens, tt.wantTokens) {
				t.Errorf("tokens = %q, want %q", tokens, tt.wantTokens)
			}
		})
	}
}

func TestOllamaStreamPassesPromptAndOptions(t *testing.T) {
	var got api.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		writeNDJSON(w, api.GenerateResponse{Response: "ok", Done: true})
	}))
	defer srv.Close()

	p := newTestOllama(t, srv.URL, "mistral")
	req := testRequest()
	req.Model = "llama3.2"
	for _, err := range p.Stream(context.Background(), req) {
		if err != nil {
			t.Fatalf("Stream() unexpected error: %v", err)
		}
	}

	if got.Model != "llama3.2" {
		t.Errorf("model = %q, want request override %q", got.Model, "llama3.2")
	}
	if got.System != req.System {
		t.Errorf("system = %q, want %q", got.System, req.System)
	}
	if got.Prompt != req.User {
		t.Errorf("prompt = %q, want %q", got.Prompt, req.User)
	}
	if got.Stream == nil || !*got.Stream {
		t.Error("stream flag not set")
	}
	for key, want := range map[string]float64{
		"temperature":    0.7,
		"top_p":          0.95,
		"top_k":          40,
		"num_predict":    500,
		"repeat_penalty": 1.15,
	} {
		v, ok := got.Options[key].(float64)
		if !ok || v != want {
			t.Errorf("option %s = %v, want %v", key, got.Options[key], want)
		}
	}
}

func TestOllamaOptionsOmitZeroValues(t *testing.T) {
	if opts := ollamaOptions(GenerationConfig{}); len(opts) != 0 {
		t.Errorf("ollamaOptions(zero) = %v, want empty", opts)
	}
}
