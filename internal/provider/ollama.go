package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is the local Ollama server address.
const DefaultOllamaHost = "http://localhost:11434"

// errStopIteration aborts an Ollama stream when the consumer stops ranging.
var errStopIteration = errors.New("stream consumer stopped")

// OllamaProvider implements Provider using a local Ollama instance. It uses
// the generate endpoint, which streams one JSON object per generated chunk.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllama creates an OllamaProvider connected to the given host and model.
func NewOllama(host, model string) (*OllamaProvider, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host URL: %w", err)
	}
	client := api.NewClient(base, &http.Client{})
	return &OllamaProvider{client: client, model: model}, nil
}

func (o *OllamaProvider) Name() string { return "ollama" }

func (o *OllamaProvider) Capabilities() Capabilities {
	return Capabilities{
		Streaming:         true,
		SafetySettings:    false,
		RepetitionPenalty: true,
	}
}

// Available checks if Ollama is reachable and the configured model exists.
func (o *OllamaProvider) Available(ctx context.Context) error {
	models, err := o.client.List(ctx)
	if err != nil {
		return fmt.Errorf("cannot reach Ollama at configured host: %w", err)
	}

	for _, m := range models.Models {
		if m.Name == o.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found in Ollama", o.model)
}

// Stream sends the prompt to Ollama and yields each generated chunk.
func (o *OllamaProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := true
		genReq := &api.GenerateRequest{
			Model:   resolveModel(req.Model, o.model),
			Prompt:  req.User,
			System:  req.System,
			Stream:  &stream,
			Options: ollamaOptions(req.Generation),
		}

		err := o.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
			if resp.Response == "" {
				return nil
			}
			if !yield(resp.Response, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield("", fmt.Errorf("ollama generate: %w", err))
		}
	}
}

func ollamaOptions(g GenerationConfig) map[string]any {
	opts := make(map[string]any)
	if g.Temperature > 0 {
		opts["temperature"] = g.Temperature
	}
	if g.TopP > 0 {
		opts["top_p"] = g.TopP
	}
	if g.TopK > 0 {
		opts["top_k"] = g.TopK
	}
	if g.MaxOutputTokens > 0 {
		opts["num_predict"] = g.MaxOutputTokens
	}
	if g.RepetitionPenalty > 0 {
		opts["repeat_penalty"] = g.RepetitionPenalty
	}
	return opts
}
