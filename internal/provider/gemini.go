package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/logging"
)

const (
	// DefaultGeminiHost is the public Generative Language API base URL.
	DefaultGeminiHost = "https://generativelanguage.googleapis.com/v1beta"

	geminiBufferedLimit = 4 << 20 // 4 MiB

	methodStream   = "streamGenerateContent"
	methodGenerate = "generateContent"
)

// GeminiProvider implements Provider against the Gemini REST API directly.
type GeminiProvider struct {
	client *http.Client
	host   string
	model  string
	apiKey string
}

// NewGemini creates a GeminiProvider. The client has no overall timeout so
// long streams are not cut off; bound requests through the context instead.
func NewGemini(host, model, apiKey string) (*GeminiProvider, error) {
	base := strings.TrimSpace(host)
	if base == "" {
		base = DefaultGeminiHost
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parsing gemini host URL: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required (set GEMINI_API_KEY)")
	}

	return &GeminiProvider{
		client: &http.Client{},
		host:   strings.TrimRight(base, "/"),
		model:  model,
		apiKey: apiKey,
	}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Capabilities() Capabilities {
	return Capabilities{
		Streaming:         true,
		SafetySettings:    true,
		RepetitionPenalty: false,
	}
}

// Available checks that the key is accepted and the configured model exists.
func (g *GeminiProvider) Available(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/models/%s?key=%s", g.host, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building gemini availability request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("checking gemini availability: %w", redactKey(err, g.apiKey))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return newStatusError(g.Name(), resp)
	}
	return nil
}

// Stream posts the request to the streaming endpoint and yields text as
// events arrive. If the streaming endpoint does not exist (404) the request
// is retried once against the buffered endpoint.
func (g *GeminiProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		model := resolveModel(req.Model, g.model)
		body, err := json.Marshal(newGeminiRequest(req))
		if err != nil {
			yield("", fmt.Errorf("encoding gemini request: %w", err))
			return
		}

		resp, err := g.post(ctx, model, methodStream, body)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			logging.L().Warn("gemini streaming endpoint not found, retrying without streaming",
				zap.String("model", model),
				zap.String("status", se.Status),
			)
			resp, err = g.post(ctx, model, methodGenerate, body)
		}
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if isEventStream(resp.Header.Get("Content-Type")) {
			streamEvents(resp.Body, yield)
			return
		}
		yieldBuffered(resp.Body, yield)
	}
}

func (g *GeminiProvider) post(ctx context.Context, model, method string, body []byte) (*http.Response, error) {
	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s", g.host, url.PathEscape(model), method, url.QueryEscape(g.apiKey))
	if method == methodStream {
		endpoint += "&alt=sse"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if method == methodStream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", method, redactKey(err, g.apiKey))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, newStatusError(g.Name(), resp)
	}
	return resp, nil
}

// streamEvents reads SSE events from body and yields the text of each one.
// Payloads that are not JSON are keep-alives and are skipped. The [DONE]
// sentinel stops event processing; the remaining body is drained.
func streamEvents(body io.Reader, yield func(string, error) bool) {
	for data, err := range sseEvents(body) {
		if err != nil {
			yield("", fmt.Errorf("reading gemini stream: %w", err))
			return
		}

		data = strings.TrimSpace(data)
		if data == streamDoneSentinel {
			drain(body)
			return
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		text, err := chunk.text()
		if err != nil {
			yield("", err)
			return
		}
		if text == "" {
			continue
		}
		if !yield(text, nil) {
			return
		}
	}
}

// yieldBuffered reads a complete JSON document and yields all of its text as
// a single token.
func yieldBuffered(body io.Reader, yield func(string, error) bool) {
	data, err := io.ReadAll(io.LimitReader(body, geminiBufferedLimit))
	if err != nil {
		yield("", fmt.Errorf("reading gemini response: %w", err))
		return
	}
	text, err := ExtractGeminiText(data)
	if err != nil {
		yield("", err)
		return
	}
	if text != "" {
		yield(text, nil)
	}
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/event-stream"
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
