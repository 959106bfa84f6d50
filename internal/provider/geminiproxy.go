package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

// DefaultProxyPath is where `mindful serve` mounts the generate endpoint.
const DefaultProxyPath = "/api/gemini/generate"

// ProxyRequest is the body accepted by the generate proxy endpoint.
type ProxyRequest struct {
	Contents         json.RawMessage `json:"contents"`
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
	SafetySettings   json.RawMessage `json:"safetySettings,omitempty"`
	Model            string          `json:"model,omitempty"`
}

// ProxyResponse is the success body of the generate proxy endpoint.
type ProxyResponse struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

// ProxyError is the failure body of the generate proxy endpoint.
type ProxyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// GeminiProxyProvider sends Gemini requests through a server-side proxy that
// holds the API key, so no credential is needed on this side. The proxy only
// exposes the buffered endpoint, so every response arrives as one token.
type GeminiProxyProvider struct {
	client   *http.Client
	endpoint string
	model    string
}

// NewGeminiProxy creates a GeminiProxyProvider posting to endpoint. A bare
// base URL ("http://host:8080") gets DefaultProxyPath appended.
func NewGeminiProxy(endpoint, model string) (*GeminiProxyProvider, error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		return nil, fmt.Errorf("proxy URL cannot be empty")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultProxyPath
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	return &GeminiProxyProvider{
		client:   &http.Client{},
		endpoint: u.String(),
		model:    model,
	}, nil
}

func (p *GeminiProxyProvider) Name() string { return "gemini-proxy" }

func (p *GeminiProxyProvider) Capabilities() Capabilities {
	return Capabilities{
		Streaming:         false,
		SafetySettings:    true,
		RepetitionPenalty: false,
	}
}

// Available checks that the proxy host answers its health endpoint.
func (p *GeminiProxyProvider) Available(ctx context.Context) error {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return fmt.Errorf("parsing proxy URL: %w", err)
	}
	u.Path = "/healthz"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building proxy availability request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach proxy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return newStatusError(p.Name(), resp)
	}
	return nil
}

func (p *GeminiProxyProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		gr := newGeminiRequest(req)
		contents, err := json.Marshal(gr.Contents)
		if err != nil {
			yield("", fmt.Errorf("encoding proxy request: %w", err))
			return
		}
		genCfg, err := json.Marshal(gr.GenerationConfig)
		if err != nil {
			yield("", fmt.Errorf("encoding proxy request: %w", err))
			return
		}
		var safety json.RawMessage
		if len(gr.SafetySettings) > 0 {
			if safety, err = json.Marshal(gr.SafetySettings); err != nil {
				yield("", fmt.Errorf("encoding proxy request: %w", err))
				return
			}
		}

		body, err := json.Marshal(ProxyRequest{
			Contents:         contents,
			GenerationConfig: genCfg,
			SafetySettings:   safety,
			Model:            resolveModel(req.Model, p.model),
		})
		if err != nil {
			yield("", fmt.Errorf("encoding proxy request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("building proxy request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("gemini proxy: %w", err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			yield("", newStatusError(p.Name(), resp))
			return
		}

		var decoded ProxyResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			yield("", fmt.Errorf("decoding proxy response: %w", err))
			return
		}
		if decoded.Text == "" && len(decoded.Raw) > 0 {
			// The proxy extracts text without looking at safety fields.
			if _, err := ExtractGeminiText(decoded.Raw); err != nil {
				yield("", err)
				return
			}
		}
		if decoded.Text != "" {
			yield(decoded.Text, nil)
		}
	}
}
