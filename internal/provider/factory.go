package provider

import (
	"fmt"
	"strings"
)

// BuildConfig contains provider-specific runtime settings used by the factory.
type BuildConfig struct {
	Name         string
	Model        string
	GeminiHost   string
	GeminiAPIKey string
	UseProxy     bool
	ProxyURL     string
	OllamaHost   string
	OpenAIHost   string
	OpenAIAPIKey string
}

// NewFromConfig builds the configured provider implementation. For gemini,
// UseProxy selects the proxy transport, which needs no API key.
func NewFromConfig(cfg BuildConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "gemini":
		if cfg.UseProxy {
			return NewGeminiProxy(cfg.ProxyURL, cfg.Model)
		}
		return NewGemini(cfg.GeminiHost, cfg.Model, cfg.GeminiAPIKey)
	case "genai":
		return NewGenAI(cfg.GeminiHost, cfg.Model, cfg.GeminiAPIKey)
	case "ollama":
		return NewOllama(cfg.OllamaHost, cfg.Model)
	case "openai":
		return NewOpenAI(cfg.OpenAIHost, cfg.Model, cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Name)
	}
}
