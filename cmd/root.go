// Package cmd defines and implements the CLI commands for the webcache executable.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webcache-io/webcache/internal/cache"
	"github.com/webcache-io/webcache/internal/config"
	"github.com/webcache-io/webcache/internal/extract"
	"github.com/webcache-io/webcache/internal/fetch"
	"github.com/webcache-io/webcache/internal/logging"
	"github.com/webcache-io/webcache/internal/web"
)

var cfgFile string

// env bundles the services a subcommand needs. Built once per invocation.
type env struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *cache.DB
	service *web.Service
}

func (e *env) close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.logger.Warn("close store failed", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

func buildEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logger.Error("open store failed", zap.Error(err))
		return nil, err
	}

	fetcher := fetch.NewClient(fetch.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		MaxBytes:      cfg.Fetch.MaxBytes,
		Timeout:       cfg.FetchTimeout(),
		MaxRedirects:  cfg.Fetch.MaxRedirects,
		RespectRobots: cfg.Fetch.RespectRobots,
	}, logging.Named(logger, "fetch"))

	service := web.NewService(db, fetcher, extract.NewReadable(), web.Options{
		DefaultTTL: cfg.DefaultTTL(),
		MaxBytes:   cfg.Fetch.MaxBytes,
		MaxEntries: cfg.Cache.MaxEntries,
	}, logging.Named(logger, "web"))

	return &env{cfg: cfg, logger: logger, db: db, service: service}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webcache",
		Short: "A safety-gated URL fetcher with a content-addressed snapshot cache.",
		Long: `webcache fetches pages from the public web behind SSRF and robots.txt
gates, extracts readable content, and persists every result as a
content-addressed snapshot in a local SQLite store. Repeat requests are
served from the store without touching the network.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env-only)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newPurgeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() error {
	return newRootCmd().Execute()
}
