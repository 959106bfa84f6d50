// Package config manages the mindful configuration file at ~/.mindful/config.yaml.
// API keys are never written to the file; they come from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpkotak/mindful/internal/provider"
)

var ErrNotFound = errors.New("config file not found")

// Environment variables read by ApplyEnv.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvHFToken      = "HF_TOKEN"
	EnvProvider     = "MINDFUL_PROVIDER"
	EnvModel        = "MINDFUL_MODEL"
	EnvUseProxy     = "MINDFUL_USE_PROXY"
	EnvProxyURL     = "MINDFUL_PROXY_URL"
)

// DefaultModel is the small, fast Gemini model used out of the box.
const DefaultModel = "gemini-2.5-flash"

// Providers lists the supported provider names.
var Providers = []string{"gemini", "genai", "ollama", "openai"}

type Config struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Gemini         Gemini        `yaml:"gemini"`
	Ollama         Ollama        `yaml:"ollama"`
	OpenAI         OpenAI        `yaml:"openai"`
	Generation     Generation    `yaml:"generation"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	Log            Log           `yaml:"log"`

	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

type Gemini struct {
	Host     string `yaml:"host"`
	UseProxy bool   `yaml:"use_proxy"`
	ProxyURL string `yaml:"proxy_url,omitempty"`
}

type Ollama struct {
	Host string `yaml:"host"`
}

type OpenAI struct {
	Host string `yaml:"host"`
}

type Generation struct {
	Temperature       float64 `yaml:"temperature"`
	TopP              float64 `yaml:"top_p"`
	TopK              int     `yaml:"top_k"`
	MaxOutputTokens   int     `yaml:"max_output_tokens"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Dir returns the config directory path (~/.mindful).
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mindful")
}

// Path returns the config file path (~/.mindful/config.yaml).
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Exists checks if the config file exists.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// Load reads and parses the config file. Returns ErrNotFound if it doesn't exist.
func Load() (*Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := marshalConfig(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(Path(), data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func marshalConfig(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Default returns a config with sensible defaults.
func Default() *Config {
	g := provider.DefaultGeneration()
	return &Config{
		Provider: "gemini",
		Model:    DefaultModel,
		Gemini: Gemini{
			Host: provider.DefaultGeminiHost,
		},
		Ollama: Ollama{
			Host: provider.DefaultOllamaHost,
		},
		OpenAI: OpenAI{
			Host: provider.DefaultOpenAIHost,
		},
		Generation: Generation{
			Temperature:       g.Temperature,
			TopP:              g.TopP,
			TopK:              g.TopK,
			MaxOutputTokens:   g.MaxOutputTokens,
			RepetitionPenalty: g.RepetitionPenalty,
		},
		Log: Log{Level: "info"},
	}
}

// Resolve loads the config file (or defaults when there is none), applies
// environment overrides and validates the result.
func Resolve() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		cfg = Default()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvGeminiAPIKey); ok {
		c.GeminiAPIKey = v
	}
	if v, ok := get(EnvOpenAIAPIKey); ok {
		c.OpenAIAPIKey = v
	} else if v, ok := get(EnvHFToken); ok {
		c.OpenAIAPIKey = v
	}
	if v, ok := get(EnvProvider); ok {
		c.Provider = strings.ToLower(v)
	}
	if v, ok := get(EnvModel); ok {
		c.Model = v
	}
	if v, ok := get(EnvUseProxy); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvUseProxy, v, err)
		}
		c.Gemini.UseProxy = b
	}
	if v, ok := get(EnvProxyURL); ok {
		c.Gemini.ProxyURL = v
	}
	return nil
}

// Validate checks the config for values no provider could use.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.Provider) {
		return fmt.Errorf("unsupported provider %q (want one of %s)", c.Provider, strings.Join(Providers, ", "))
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model cannot be empty")
	}

	for name, host := range map[string]string{
		"gemini.host": c.Gemini.Host,
		"ollama.host": c.Ollama.Host,
		"openai.host": c.OpenAI.Host,
	} {
		if host == "" {
			continue
		}
		if _, err := url.ParseRequestURI(host); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, host, err)
		}
	}
	if c.Provider == "gemini" && c.Gemini.UseProxy {
		if strings.TrimSpace(c.Gemini.ProxyURL) == "" {
			return fmt.Errorf("gemini.proxy_url is required when gemini.use_proxy is true")
		}
		if _, err := url.ParseRequestURI(c.Gemini.ProxyURL); err != nil {
			return fmt.Errorf("invalid gemini.proxy_url %q: %w", c.Gemini.ProxyURL, err)
		}
	}

	g := c.Generation
	switch {
	case g.Temperature < 0 || g.Temperature > 2:
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", g.Temperature)
	case g.TopP < 0 || g.TopP > 1:
		return fmt.Errorf("generation.top_p must be between 0 and 1, got %v", g.TopP)
	case g.TopK < 0:
		return fmt.Errorf("generation.top_k cannot be negative")
	case g.MaxOutputTokens < 0:
		return fmt.Errorf("generation.max_output_tokens cannot be negative")
	case g.RepetitionPenalty < 0:
		return fmt.Errorf("generation.repetition_penalty cannot be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	return nil
}

// GenerationConfig converts the sampling section for the provider layer.
func (c *Config) GenerationConfig() provider.GenerationConfig {
	return provider.GenerationConfig{
		Temperature:       c.Generation.Temperature,
		TopP:              c.Generation.TopP,
		TopK:              c.Generation.TopK,
		MaxOutputTokens:   c.Generation.MaxOutputTokens,
		RepetitionPenalty: c.Generation.RepetitionPenalty,
	}
}

// BuildConfig returns the provider factory settings for model.
func (c *Config) BuildConfig(model string) provider.BuildConfig {
	if strings.TrimSpace(model) == "" {
		model = c.Model
	}
	return provider.BuildConfig{
		Name:         c.Provider,
		Model:        model,
		GeminiHost:   c.Gemini.Host,
		GeminiAPIKey: c.GeminiAPIKey,
		UseProxy:     c.Gemini.UseProxy,
		ProxyURL:     c.Gemini.ProxyURL,
		OllamaHost:   c.Ollama.Host,
		OpenAIHost:   c.OpenAI.Host,
		OpenAIAPIKey: c.OpenAIAPIKey,
	}
}
