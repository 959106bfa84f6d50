// Package proxy serves the Gemini generate endpoint so clients can talk to
// Gemini without holding the API key. The key stays on the server.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/provider"
)

const (
	maxRequestBody  = 1 << 20 // 1 MiB
	maxUpstreamBody = 4 << 20 // 4 MiB
)

// Config configures a Handler.
type Config struct {
	// APIKey is the Gemini API key. Required.
	APIKey string
	// Upstream is the Gemini API base URL. Defaults to provider.DefaultGeminiHost.
	Upstream string
	// DefaultModel is used when a request names no model.
	DefaultModel string
	// Client defaults to an http.Client with a two minute timeout.
	Client *http.Client
}

// Handler forwards generate requests to Gemini's buffered endpoint.
type Handler struct {
	apiKey   string
	upstream string
	model    string
	client   *http.Client
}

// New validates cfg and returns a Handler.
func New(cfg Config) (*Handler, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("missing GEMINI_API_KEY on server")
	}
	upstream := strings.TrimRight(strings.TrimSpace(cfg.Upstream), "/")
	if upstream == "" {
		upstream = provider.DefaultGeminiHost
	}
	if _, err := url.ParseRequestURI(upstream); err != nil {
		return nil, fmt.Errorf("parsing upstream URL: %w", err)
	}
	model := strings.TrimSpace(cfg.DefaultModel)
	if model == "" {
		return nil, errors.New("default model cannot be empty")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	return &Handler{apiKey: key, upstream: upstream, model: model, client: client}, nil
}

// Mux returns a ServeMux with the generate endpoint at provider.DefaultProxyPath
// and a liveness check at /healthz.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(provider.DefaultProxyPath, h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, provider.ProxyError{Error: "Method not allowed"})
		return
	}

	// An unreadable body is treated as empty and fails the contents check.
	var req provider.ProxyRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)

	if !nonEmptyArray(req.Contents) {
		writeJSON(w, http.StatusBadRequest, provider.ProxyError{Error: "Invalid request: contents[] is required"})
		return
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.model
	}

	status, body, err := h.forward(r, model, req)
	if err != nil {
		logging.L().Error("gemini proxy request failed", zap.String("model", model), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, provider.ProxyError{Error: "Server error", Message: err.Error()})
		return
	}

	if status < 200 || status > 299 {
		logging.L().Warn("gemini upstream rejected request",
			zap.String("model", model),
			zap.Int("status", status),
		)
		writeJSON(w, status, provider.ProxyError{
			Error:   fmt.Sprintf("Gemini request failed: %d %s", status, http.StatusText(status)),
			Details: string(body),
		})
		return
	}

	text, err := joinText(body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, provider.ProxyError{Error: "Server error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, provider.ProxyResponse{Text: text, Raw: json.RawMessage(body)})
}

// forward posts to the upstream generateContent endpoint and returns its
// status and body. Errors never include the API key.
func (h *Handler) forward(r *http.Request, model string, req provider.ProxyRequest) (int, []byte, error) {
	payload, err := json.Marshal(struct {
		Contents         json.RawMessage `json:"contents"`
		GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
		SafetySettings   json.RawMessage `json:"safetySettings,omitempty"`
	}{req.Contents, req.GenerationConfig, req.SafetySettings})
	if err != nil {
		return 0, nil, fmt.Errorf("encoding upstream request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", h.upstream, url.PathEscape(model), url.QueryEscape(h.apiKey))
	upReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("building upstream request: %w", err)
	}
	upReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(upReq)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return 0, nil, fmt.Errorf("calling gemini: %w", uerr.Err)
		}
		return 0, nil, errors.New("calling gemini failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return 0, nil, fmt.Errorf("reading upstream response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// joinText concatenates the text parts of the first candidate. Safety fields
// are left for the client, which receives the raw payload.
func joinText(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding upstream response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func nonEmptyArray(raw json.RawMessage) bool {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return false
	}
	return len(items) > 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
