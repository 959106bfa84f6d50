package provider

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIHost is the Hugging Face inference router, which speaks the
// OpenAI chat completions protocol for hosted open models.
const DefaultOpenAIHost = "https://router.huggingface.co/v1"

// OpenAIProvider implements Provider for OpenAI-compatible chat completion APIs.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAIProvider connected to the given host and model.
func NewOpenAI(host, model, apiKey string) (*OpenAIProvider, error) {
	base := strings.TrimSpace(host)
	if base == "" {
		base = DefaultOpenAIHost
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parsing openai host URL: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api key is required (set OPENAI_API_KEY or HF_TOKEN)")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(base, "/")+"/"),
		option.WithHTTPClient(&http.Client{}),
		option.WithMaxRetries(0),
	)
	return &OpenAIProvider{client: client, model: model}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{
		Streaming:         true,
		SafetySettings:    false,
		RepetitionPenalty: false,
	}
}

// Available checks if the API is reachable and the configured model exists.
func (o *OpenAIProvider) Available(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("openai model %q unavailable: %w", o.model, err)
	}
	return nil
}

// Stream sends a system+user conversation and yields content deltas.
func (o *OpenAIProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(resolveModel(req.Model, o.model)),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.System),
				openai.UserMessage(req.User),
			},
		}
		if g := req.Generation; g.Temperature > 0 {
			params.Temperature = openai.Float(g.Temperature)
		}
		if g := req.Generation; g.TopP > 0 {
			params.TopP = openai.Float(g.TopP)
		}
		if g := req.Generation; g.MaxOutputTokens > 0 {
			params.MaxTokens = openai.Int(int64(g.MaxOutputTokens))
		}

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai stream: %w", err))
		}
	}
}
