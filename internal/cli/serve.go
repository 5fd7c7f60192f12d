package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad/azstorage/internal/core"
	"github.com/asad/azstorage/internal/httpx"
	"github.com/asad/azstorage/internal/logging"
	"github.com/asad/azstorage/internal/services/media"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the container over HTTP",
		Long: `Start the media gateway on the configured port.
Blobs are served under /media/, with /health and /metrics alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().Int("http-port", 8080, "HTTP port to listen on")
	bindFlags(a.v, cmd.Flags(), map[string]string{"http_port": "http-port"})
	return cmd
}

// runServe initializes and starts the HTTP server. It returns once ctx is
// cancelled or a termination signal arrives and in-flight requests drain.
func (a *app) runServe(ctx context.Context) error {
	adapter, cfg, logger, err := a.adapter()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting azstorage",
		logging.String("version", Version),
		logging.Int("http_port", cfg.HTTPPort),
		logging.String("account", cfg.AccountName),
		logging.String("container", cfg.Container),
		logging.String("log_level", cfg.LogLevel),
	)

	registry := core.NewRegistry(media.NewMediaService(adapter, logger))
	router := httpx.NewEdgeRouter(logger, registry)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
