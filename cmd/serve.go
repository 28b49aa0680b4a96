package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webcache-io/webcache/internal/api"
	"github.com/webcache-io/webcache/internal/extract"
	"github.com/webcache-io/webcache/internal/logging"
	"github.com/webcache-io/webcache/internal/search"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API server",
		Long: `Serves the open, batch, extract, search and cache endpoints over HTTP until
interrupted. The server drains in-flight requests on SIGINT/SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	defer e.close()

	searchLogger := logging.Named(e.logger, "search")
	provider := search.NewClient(e.cfg.Search.Endpoint, e.cfg.Search.APIKey, searchLogger)
	searcher := search.NewCachedClient(provider, e.db, e.cfg.SearchCacheTTL(), searchLogger)

	server := api.NewServer(e.service, e.db, searcher, extract.NewReadable(), e.logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", e.cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("server listening", zap.Int("port", e.cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		e.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
