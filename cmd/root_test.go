package cmd

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hpkotak/mindful/internal/config"
	"github.com/hpkotak/mindful/internal/provider"
	"github.com/hpkotak/mindful/internal/repl"
)

// mockProvider implements provider.Provider with configurable stream output.
type mockProvider struct {
	tokens []string
	err    error
	req    provider.Request
}

func (m *mockProvider) Name() string                        { return "mock" }
func (m *mockProvider) Capabilities() provider.Capabilities { return provider.Capabilities{Streaming: true} }
func (m *mockProvider) Available(_ context.Context) error   { return nil }

func (m *mockProvider) Stream(_ context.Context, req provider.Request) iter.Seq2[string, error] {
	m.req = req
	return func(yield func(string, error) bool) {
		for _, tok := range m.tokens {
			if !yield(tok, nil) {
				return
			}
		}
		if m.err != nil {
			yield("", m.err)
		}
	}
}

// saveCmdVars saves the package-level function vars and returns a restore function.
func saveCmdVars(t *testing.T) func() {
	t.Helper()
	origNewProvider := newProvider
	origIoIn := ioIn
	origIoOut := ioOut
	origModelFlag := modelFlag
	origLookupEnv := lookupEnv
	origAddr := addrFlag
	return func() {
		newProvider = origNewProvider
		ioIn = origIoIn
		ioOut = origIoOut
		modelFlag = origModelFlag
		lookupEnv = origLookupEnv
		addrFlag = origAddr
	}
}

// setupTestConfig creates a temp config file and sets HOME so config.Load() works.
func setupTestConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	if err := config.Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
}

// setupMalformedConfig writes invalid YAML to the config path.
func setupMalformedConfig(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	cfgDir := filepath.Join(tmpDir, ".mindful")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("provider: [gemini\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestRunMessage(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		mock      *mockProvider
		wantErr   string
		wantOut   []string
		notWanted string
	}{
		{
			name:    "streams reply",
			args:    []string{"I", "feel", "stressed"},
			mock:    &mockProvider{tokens: []string{"That sounds ", "really hard."}},
			wantOut: []string{"That sounds really hard."},
		},
		{
			name:    "crisis message prints resources",
			args:    []string{"I", "want", "to", "end", "my", "life"},
			mock:    &mockProvider{tokens: []string{"I'm here with you."}},
			wantOut: []string{"I'm here with you.", repl.CrisisNotice},
		},
		{
			name:    "provider error prints fallback",
			args:    []string{"hello"},
			mock:    &mockProvider{err: fmt.Errorf("gemini: HTTP 401 Unauthorized")},
			wantErr: "reply failed (authentication)",
			wantOut: []string{"trouble accessing"},
		},
		{
			name:      "everyday message has no crisis notice",
			args:      []string{"hello"},
			mock:      &mockProvider{tokens: []string{"Hi!"}},
			wantOut:   []string{"Hi!"},
			notWanted: "988",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restore := saveCmdVars(t)
			defer restore()
			setupTestConfig(t, config.Default())

			newProvider = func(provider.BuildConfig) (provider.Provider, error) {
				return tt.mock, nil
			}
			out := &bytes.Buffer{}
			ioOut = out

			err := runMessage(rootCmd, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, want := range tt.wantOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output = %q, want substring %q", out.String(), want)
				}
			}
			if tt.notWanted != "" && strings.Contains(out.String(), tt.notWanted) {
				t.Errorf("output = %q, should not contain %q", out.String(), tt.notWanted)
			}
			if tt.mock.req.User != strings.Join(tt.args, " ") {
				t.Errorf("request user = %q, want joined args", tt.mock.req.User)
			}
		})
	}
}

func TestRunMessageNoArgsShowsHelp(t *testing.T) {
	restore := saveCmdVars(t)
	defer restore()

	called := false
	newProvider = func(provider.BuildConfig) (provider.Provider, error) {
		called = true
		return &mockProvider{}, nil
	}

	cmd := &cobra.Command{Use: "mindful"}
	cmd.SetOut(&bytes.Buffer{})
	if err := runMessage(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("provider built without a message")
	}
}

func TestRunMessageBuildConfig(t *testing.T) {
	restore := saveCmdVars(t)
	defer restore()

	cfg := config.Default()
	cfg.Provider = "ollama"
	cfg.Model = "mistral:7b-instruct"
	setupTestConfig(t, cfg)

	var got provider.BuildConfig
	mock := &mockProvider{tokens: []string{"ok"}}
	newProvider = func(bc provider.BuildConfig) (provider.Provider, error) {
		got = bc
		return mock, nil
	}
	ioOut = &bytes.Buffer{}
	modelFlag = "llama3.2:3b"

	if err := runMessage(rootCmd, []string{"hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ollama" || got.Model != "llama3.2:3b" {
		t.Errorf("build config = %+v, want ollama with flag model", got)
	}
	if mock.req.Generation != provider.DefaultGeneration() {
		t.Errorf("generation = %+v, want defaults", mock.req.Generation)
	}
}

func TestRunMessageConfigErrors(t *testing.T) {
	t.Run("malformed config", func(t *testing.T) {
		restore := saveCmdVars(t)
		defer restore()
		setupMalformedConfig(t)

		err := runMessage(rootCmd, []string{"hi"})
		if err == nil || !strings.Contains(err.Error(), "loading config") {
			t.Errorf("error = %v, want loading config", err)
		}
	})

	t.Run("provider creation error", func(t *testing.T) {
		restore := saveCmdVars(t)
		defer restore()
		setupTestConfig(t, config.Default())

		newProvider = func(provider.BuildConfig) (provider.Provider, error) {
			return nil, fmt.Errorf("gemini api key is required")
		}
		err := runMessage(rootCmd, []string{"hi"})
		if err == nil || !strings.Contains(err.Error(), "mindful setup") {
			t.Errorf("error = %v, want setup hint", err)
		}
	})
}
