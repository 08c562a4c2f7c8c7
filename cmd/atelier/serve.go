package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier/internal/catalog"
	"atelier/internal/logging"
	"atelier/internal/mcp"
	"atelier/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve patterns as MCP tools on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *cliOptions) error {
	ctx, cancel := signalAwareContext(cmd.Context())
	defer cancel()

	logger := opts.logger.With("session", uuid.NewString())

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusMetrics(registry)

	start := time.Now()
	cat, err := opts.loadCatalog(ctx, catalog.WithObserver(recorder), catalog.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to load patterns", "error", err)
		return err
	}
	logger.LogPerformance("load patterns", start)
	logger.Info("Patterns loaded", "count", cat.Len())

	srv := mcp.NewServerWithCatalog(opts.cfg, logger, cat, mcp.WithRecorder(recorder))

	go reloadOnHangup(ctx, srv, logger)

	if addr := opts.cfg.Metrics.Addr; addr != "" {
		go func() {
			err := metrics.StartServer(ctx, metrics.ServerOptions{
				Addr:     addr,
				Registry: registry,
				Health:   cat.Len,
			}, logger)
			if err != nil {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	err = srv.ServeStdio(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Transport stopped", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// reloadOnHangup rebuilds the catalog on every SIGHUP until ctx is done.
// A failed reload keeps the previous catalog.
func reloadOnHangup(ctx context.Context, srv *mcp.Server, logger *logging.AppLogger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := srv.Reload(ctx); err != nil {
				logger.Warn("Reload failed, keeping previous catalog", "error", err)
				continue
			}
			logger.Info("Catalog reloaded", "count", srv.Catalog().Len())
		}
	}
}
