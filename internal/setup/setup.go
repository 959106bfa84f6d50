// Package setup handles first-run onboarding: choosing a provider and model,
// checking that the backend answers, and writing the config file. API keys
// are read from the environment and never stored.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/config"
	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/provider"
)

const (
	verifyTimeout = 30 * time.Second
	listTimeout  = 10 * time.Second
)

// Package-level function variables for testability.
var (
	newProvider = provider.NewFromConfig
	saveConfig  = config.Save
	lookupEnv   = os.LookupEnv
	newBackOff  = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxInterval = 5 * time.Second
		b.MaxElapsedTime = 20 * time.Second
		return b
	}
)

type choice struct {
	label    string
	provider string
	proxy    bool
}

var choices = []choice{
	{"Gemini (direct, needs GEMINI_API_KEY)", "gemini", false},
	{"Gemini through a mindful proxy (no key on this machine)", "gemini", true},
	{"Gemini via the Google Gen AI SDK (needs GEMINI_API_KEY)", "genai", false},
	{"Ollama (local models)", "ollama", false},
	{"OpenAI-compatible API, e.g. Hugging Face (needs OPENAI_API_KEY or HF_TOKEN)", "openai", false},
}

// Run executes the interactive setup flow.
// in and out are injectable for testability.
func Run(in io.Reader, out io.Writer) error {
	pr := NewPrompter(in, out)

	_, _ = fmt.Fprintln(out, "Mindful Setup")
	_, _ = fmt.Fprintln(out, "=============")

	cfg, err := config.Load()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Default()
	}

	c, err := selectProvider(pr)
	if err != nil {
		return err
	}
	cfg.Provider = c.provider
	cfg.Gemini.UseProxy = c.proxy

	switch {
	case c.proxy:
		cfg.Gemini.ProxyURL = pr.Ask("Proxy URL", orDefault(cfg.Gemini.ProxyURL, "http://localhost:8080"))
		cfg.Model = pr.Ask("Model", orDefault(cfg.Model, config.DefaultModel))
	case c.provider == "ollama":
		cfg.Ollama.Host = pr.Ask("Ollama host", orDefault(cfg.Ollama.Host, provider.DefaultOllamaHost))
		if err := waitForOllama(cfg.Ollama.Host, out); err != nil {
			return err
		}
		model, err := selectOllamaModel(cfg.Ollama.Host, pr)
		if err != nil {
			return err
		}
		cfg.Model = model
	case c.provider == "openai":
		cfg.OpenAI.Host = pr.Ask("API base URL", orDefault(cfg.OpenAI.Host, provider.DefaultOpenAIHost))
		cfg.Model = pr.Ask("Model", "mistralai/Mistral-7B-Instruct-v0.3")
	default:
		cfg.Model = pr.Ask("Model", config.DefaultModel)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if env := missingKey(cfg); env != "" {
		_, _ = fmt.Fprintf(out, "\n[!!] %s is not set. Export it before chatting; skipping the connection check.\n", env)
	} else if err := verify(cfg, out); err != nil {
		_, _ = fmt.Fprintf(out, "[!!] %v\n", err)
		if !pr.Confirm("Save config anyway?", false) {
			return fmt.Errorf("setup cancelled: %w", err)
		}
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	_, _ = fmt.Fprintf(out, "\nConfig saved to %s\n", config.Path())
	_, _ = fmt.Fprintln(out, "Ready! Try: mindful chat")
	return nil
}

func selectProvider(pr *Prompter) (choice, error) {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}
	n, err := pr.Choose("Where should replies come from?", labels, 1)
	if err != nil {
		return choice{}, err
	}
	c := choices[n]
	_, _ = fmt.Fprintf(pr.out, "[ok] Selected: %s\n", c.label)
	return c, nil
}

// missingKey loads API keys from the environment into cfg and returns the
// name of the variable the chosen provider still needs, if any.
func missingKey(cfg *config.Config) string {
	get := func(key string) string {
		v, _ := lookupEnv(key)
		return strings.TrimSpace(v)
	}
	cfg.GeminiAPIKey = get(config.EnvGeminiAPIKey)
	cfg.OpenAIAPIKey = get(config.EnvOpenAIAPIKey)
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = get(config.EnvHFToken)
	}

	switch {
	case cfg.Provider == "gemini" && cfg.Gemini.UseProxy:
		return ""
	case (cfg.Provider == "gemini" || cfg.Provider == "genai") && cfg.GeminiAPIKey == "":
		return config.EnvGeminiAPIKey
	case cfg.Provider == "openai" && cfg.OpenAIAPIKey == "":
		return config.EnvOpenAIAPIKey + " or " + config.EnvHFToken
	}
	return ""
}

// verify builds the configured provider and checks it is reachable, retrying transient
// failures with exponential backoff.
func verify(cfg *config.Config, out io.Writer) error {
	p, err := newProvider(cfg.BuildConfig(""))
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\nChecking %s with model %s...\n", p.Name(), cfg.Model)
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	if err := retry(ctx, out, p.Name(), func() error { return p.Available(ctx) }); err != nil {
		return fmt.Errorf("%s is not ready: %w", p.Name(), err)
	}
	_, _ = fmt.Fprintf(out, "[ok] %s is ready\n", p.Name())
	return nil
}

// retry runs op until it succeeds, fails permanently, or the backoff gives
// up. Client errors other than 429 are permanent.
func retry(ctx context.Context, out io.Writer, name string, op func() error) error {
	operation := func() error {
		err := op()
		var se *provider.StatusError
		if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(operation, backoff.WithContext(newBackOff(), ctx), func(err error, next time.Duration) {
		logging.L().Debug("setup availability check failed", zap.String("target", name), zap.Duration("next", next), zap.Error(err))
		_, _ = fmt.Fprintf(out, "  %s not ready yet, retrying in %s\n", name, next.Round(100*time.Millisecond))
	})
}

// waitForOllama waits for the Ollama server to answer. Ollama is a service
// the user runs; setup does not start it.
func waitForOllama(host string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Second}
	err := retry(ctx, out, "ollama", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, host, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ollama answered %s", resp.Status)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s. Start it with: ollama serve", host)
	}
	_, _ = fmt.Fprintln(out, "[ok] Ollama is running")
	return nil
}

func selectOllamaModel(host string, pr *Prompter) (string, error) {
	client, err := ollamaClient(host)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	models, err := client.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing models: %w", err)
	}

	if len(models.Models) == 0 {
		return pullRecommendedModel(client, pr)
	}

	names := make([]string, len(models.Models))
	for i, m := range models.Models {
		names[i] = m.Name
	}
	n, err := pr.Choose("Available models:", names, 1)
	if err != nil {
		return "", err
	}

	selected := names[n]
	_, _ = fmt.Fprintf(pr.out, "[ok] Selected: %s\n", selected)
	return selected, nil
}

func pullRecommendedModel(client *api.Client, pr *Prompter) (string, error) {
	recommended := []string{"mistral:7b-instruct", "llama3.2:3b"}
	n, err := pr.Choose("No models found. Pull a recommended model?", []string{
		"mistral:7b-instruct  (warm conversational tone, ~4GB)",
		"llama3.2:3b          (fast, ~2GB)",
		"Skip",
	}, 1)
	if err != nil {
		return "", err
	}
	if n == len(recommended) {
		return "", fmt.Errorf("no model selected. Pull a model manually with: ollama pull <model>")
	}
	model := recommended[n]

	_, _ = fmt.Fprintf(pr.out, "Pulling %s (this may take a few minutes)...\n", model)

	// Model pulls can be several GB.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	err = client.Pull(ctx, &api.PullRequest{Model: model}, func(resp api.ProgressResponse) error {
		if resp.Total > 0 {
			pct := float64(resp.Completed) / float64(resp.Total) * 100
			_, _ = fmt.Fprintf(pr.out, "\r  %.0f%% downloaded", pct)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("pulling model: %w", err)
	}
	_, _ = fmt.Fprintf(pr.out, "\n[ok] %s ready\n", model)
	return model, nil
}

func ollamaClient(host string) (*api.Client, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing host URL: %w", err)
	}
	return api.NewClient(base, &http.Client{}), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
