package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"atelier/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports the number of patterns currently served.
type HealthFunc func() int

// HealthReport is the body of /healthz.
type HealthReport struct {
	Status   string `json:"status"`
	Patterns int    `json:"patterns"`
}

// ServerOptions configures the observability HTTP server.
type ServerOptions struct {
	Addr     string
	Registry prometheus.Gatherer
	Health   HealthFunc
}

// NewHandler returns the mux serving /metrics and /healthz.
func NewHandler(opts ServerOptions) http.Handler {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler(opts.Health))
	return mux
}

// StartServer serves metrics until ctx is cancelled. An empty address
// disables the server and returns immediately.
func StartServer(ctx context.Context, opts ServerOptions, logger *logging.AppLogger) error {
	if opts.Addr == "" {
		return nil
	}
	if logger == nil {
		logger = logging.GetDefault()
	}

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("metrics server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", "error", err)
			return err
		}
		logger.Info("Metrics server stopped")
		return nil
	}
}

func healthHandler(health HealthFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := HealthReport{Status: "ok"}
		if health != nil {
			report.Patterns = health()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(report)
	})
}
