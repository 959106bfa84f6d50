package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hpkotak/mindful/internal/config"
)

func TestRunConfigShow(t *testing.T) {
	t.Run("config exists", func(t *testing.T) {
		restore := saveCmdVars(t)
		defer restore()
		out := &bytes.Buffer{}
		ioOut = out
		lookupEnv = func(key string) (string, bool) {
			if key == config.EnvGeminiAPIKey {
				return "secret-key", true
			}
			return "", false
		}
		setupTestConfig(t, config.Default())

		if err := runConfigShow(nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := out.String()
		for _, want := range []string{"provider: gemini", "# GEMINI_API_KEY: set", "# HF_TOKEN: not set"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "secret-key") {
			t.Error("output leaks the API key")
		}
	})

	t.Run("config missing", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		err := runConfigShow(nil, nil)
		if err == nil {
			t.Fatal("expected error for missing config, got nil")
		}
		if !strings.Contains(err.Error(), "mindful setup") {
			t.Errorf("error = %q, want substring %q", err.Error(), "mindful setup")
		}
	})
}
