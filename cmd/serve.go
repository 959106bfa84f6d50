package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/config"
	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/provider"
	"github.com/hpkotak/mindful/internal/proxy"
)

const shutdownTimeout = 5 * time.Second

var addrFlag string

var errMissingServerKey = errors.New("GEMINI_API_KEY must be set to run the proxy server")

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Gemini proxy so clients can chat without an API key",
	Long: `Run an HTTP server that forwards generate requests to Gemini using the
server's GEMINI_API_KEY. Point clients at it with:

  mindful config set gemini.use_proxy true
  mindful config set gemini.proxy_url http://<host>:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, _ := lookupEnv(config.EnvGeminiAPIKey)
	if strings.TrimSpace(key) == "" {
		return errMissingServerKey
	}

	model := cfg.Model
	if modelFlag != "" {
		model = modelFlag
	}
	if cfg.Provider != "gemini" && cfg.Provider != "genai" {
		model = config.DefaultModel
	}

	h, err := proxy.New(proxy.Config{
		APIKey:       key,
		Upstream:     cfg.Gemini.Host,
		DefaultModel: model,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addrFlag)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addrFlag, err)
	}

	srv := &http.Server{
		Handler:           h.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logging.L().Info("proxy listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("model", model),
	)
	_, _ = fmt.Fprintf(ioOut, "Mindful proxy listening on http://%s%s\n", ln.Addr(), provider.DefaultProxyPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logging.L().Info("proxy stopped")
	return nil
}
