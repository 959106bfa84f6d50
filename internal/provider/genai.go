package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hpkotak/mindful/internal/logging"
)

type genaiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// newGenAIClient is replaced in tests.
var newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GenAIProvider implements Provider with Google's Gen AI Go SDK.
type GenAIProvider struct {
	models genaiModels
	model  string
}

// NewGenAI creates a GenAIProvider. host may be empty to use the SDK default.
func NewGenAI(host, model, apiKey string) (*GenAIProvider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required (set GEMINI_API_KEY)")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if h := strings.TrimSpace(host); h != "" && h != DefaultGeminiHost {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: h}
	}

	client, err := newGenAIClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIProvider{models: client.Models, model: model}, nil
}

func (p *GenAIProvider) Name() string { return "genai" }

func (p *GenAIProvider) Capabilities() Capabilities {
	return Capabilities{
		Streaming:         true,
		SafetySettings:    true,
		RepetitionPenalty: false,
	}
}

func (p *GenAIProvider) Available(ctx context.Context) error {
	if _, err := p.models.Get(ctx, p.model, nil); err != nil {
		return fmt.Errorf("genai model %q unavailable: %w", p.model, err)
	}
	return nil
}

// Stream yields the text of each GenerateContentStream chunk as it arrives.
// Chunks are deltas. When the stream fails with 404 before producing any text, the request is retried once with
// GenerateContent.
func (p *GenAIProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		model := resolveModel(req.Model, p.model)
		contents := []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: req.User}},
		}}
		cfg := genaiConfig(req)

		streamed := false
		for resp, err := range p.models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				if !streamed && isNotFound(err) {
					logging.L().Warn("genai streaming not available, retrying without streaming",
						zap.String("model", model),
						zap.Error(err),
					)
					p.generateOnce(ctx, model, contents, cfg, yield)
					return
				}
				yield("", fmt.Errorf("genai stream: %w", err))
				return
			}

			text, err := genaiText(resp)
			if err != nil {
				yield("", err)
				return
			}
			if text == "" {
				continue
			}
			streamed = true
			if !yield(text, nil) {
				return
			}
		}
	}
}

func (p *GenAIProvider) generateOnce(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig, yield func(string, error) bool) {
	resp, err := p.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		yield("", fmt.Errorf("genai generate: %w", err))
		return
	}
	text, err := genaiText(resp)
	if err != nil {
		yield("", err)
		return
	}
	if text != "" {
		yield(text, nil)
	}
}

func genaiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	g := req.Generation
	if g.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(g.Temperature))
	}
	if g.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(g.TopP))
	}
	if g.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(g.TopK))
	}
	if g.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(g.MaxOutputTokens)
	}

	for _, s := range req.Safety {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return cfg
}

// genaiText returns the visible text of the first candidate, applying the
// same safety rules as the REST transport.
func genaiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt %s", ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", nil
	}

	c := resp.Candidates[0]
	if safetyFinishReasons[string(c.FinishReason)] {
		return "", fmt.Errorf("%w: finish reason %s", ErrSafetyBlocked, c.FinishReason)
	}
	if c.Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// isNotFound reports whether err is an SDK API error with status 404.
func isNotFound(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	var apiErrPtr *genai.APIError
	return errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusNotFound
}
