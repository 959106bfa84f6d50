package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hpkotak/mindful/internal/config"
)

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a configuration value",
	Long: `Update a configuration value. Supported keys:
  provider          LLM provider (gemini/genai/ollama/openai)
  model             Model name (e.g., gemini-2.5-flash)
  gemini.host       Gemini API base URL
  gemini.use_proxy  Send Gemini requests through a mindful proxy (true/false)
  gemini.proxy_url  Proxy base URL
  ollama.host       Ollama server URL
  openai.host       OpenAI-compatible API base URL
  request_timeout   Per-reply timeout, e.g. 45s (0 disables)
  log.level         debug, info, warn or error

API keys are read from GEMINI_API_KEY, OPENAI_API_KEY or HF_TOKEN and are never stored.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], strings.TrimSpace(args[1])

	cfg, err := config.Load()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Default()
	}

	switch key {
	case "provider":
		cfg.Provider = strings.ToLower(value)
		applyProviderDefaults(cfg)
	case "model":
		if value == "" {
			return fmt.Errorf("model cannot be empty")
		}
		cfg.Model = value
	case "gemini.host":
		if err := validURL(value); err != nil {
			return err
		}
		cfg.Gemini.Host = value
	case "gemini.use_proxy":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.Gemini.UseProxy = b
	case "gemini.proxy_url":
		if err := validURL(value); err != nil {
			return err
		}
		cfg.Gemini.ProxyURL = value
	case "ollama.host":
		if err := validURL(value); err != nil {
			return err
		}
		cfg.Ollama.Host = value
	case "openai.host":
		if err := validURL(value); err != nil {
			return err
		}
		cfg.OpenAI.Host = value
	case "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		cfg.RequestTimeout = d
	case "log.level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log level %q", value)
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(ioOut, "Set %s = %s\n", key, value)
	return nil
}

func validURL(value string) error {
	if _, err := url.ParseRequestURI(value); err != nil {
		return fmt.Errorf("invalid URL %q: %w", value, err)
	}
	return nil
}

func applyProviderDefaults(cfg *config.Config) {
	defaults := config.Default()
	switch cfg.Provider {
	case "gemini", "genai":
		if strings.TrimSpace(cfg.Gemini.Host) == "" {
			cfg.Gemini.Host = defaults.Gemini.Host
		}
	case "ollama":
		if strings.TrimSpace(cfg.Ollama.Host) == "" {
			cfg.Ollama.Host = defaults.Ollama.Host
		}
	case "openai":
		if strings.TrimSpace(cfg.OpenAI.Host) == "" {
			cfg.OpenAI.Host = defaults.OpenAI.Host
		}
	}
}
