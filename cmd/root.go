package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/chat"
	"github.com/hpkotak/mindful/internal/config"
	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/provider"
	"github.com/hpkotak/mindful/internal/repl"
)

var modelFlag string

// Package-level function variables for testability.
// Tests override these to avoid real provider calls.
var (
	newProvider           = provider.NewFromConfig
	ioIn        io.Reader = os.Stdin
	ioOut       io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "mindful [message]",
	Short: "A supportive mental health chat companion",
	Long: `Mindful is a supportive chat companion for everyday stress, low mood and
anxious moments. It is not a replacement for professional care.

Examples:
  mindful I can't stop worrying about work
  mindful chat
  mindful serve --addr :8080

If you are in crisis, call or text 988 (US) or text HOME to 741741.`,
	Args:              cobra.ArbitraryArgs,
	RunE:              runMessage,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override model for this session")
}

func Execute() error {
	defer func() { _ = logging.Sync() }()
	return rootCmd.Execute()
}

// loadConfig resolves the config file and environment, then starts file
// logging at the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if _, err := logging.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}
	return cfg, nil
}

// newAssembler builds the configured provider and wraps it in a chat assembler.
func newAssembler(cfg *config.Config) (*chat.Assembler, error) {
	bc := cfg.BuildConfig(modelFlag)
	p, err := newProvider(bc)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w. Run 'mindful setup' to configure", err)
	}
	logging.L().Debug("provider ready",
		zap.String("provider", p.Name()),
		zap.String("model", bc.Model),
	)
	return chat.New(p,
		chat.WithGeneration(cfg.GenerationConfig()),
		chat.WithTimeout(cfg.RequestTimeout),
	), nil
}

// runMessage answers a single message, streaming the reply to ioOut.
func runMessage(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAssembler(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	turns := []provider.Message{{Role: provider.RoleUser, Content: strings.Join(args, " ")}}
	_, _ = fmt.Fprintln(ioOut)
	res := a.Run(ctx, turns, func(tok string) {
		_, _ = fmt.Fprint(ioOut, tok)
	})

	switch {
	case res.Cancelled:
		_, _ = fmt.Fprintln(ioOut, "\n(stopped)")
		return nil
	case res.IsError:
		if res.Partial != "" {
			_, _ = fmt.Fprintln(ioOut)
		}
		_, _ = fmt.Fprintln(ioOut, res.Response)
		return fmt.Errorf("reply failed (%s)", res.Kind)
	}

	_, _ = fmt.Fprintln(ioOut)
	if res.IsEmergency {
		_, _ = fmt.Fprintln(ioOut, repl.CrisisNotice)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
