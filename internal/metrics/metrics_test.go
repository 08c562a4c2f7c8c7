package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveRequest("tools/list", "ok", 2*time.Millisecond)
	m.CatalogReplaced(12)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	// Only collectors the server updates are exported
	assert.ElementsMatch(t, []string{
		"atelier_requests_total",
		"atelier_request_duration_seconds",
		"atelier_catalog_patterns",
		"atelier_catalog_replacements_total",
	}, names)
}

func TestObserveRequest(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveRequest("tools/call", "error", time.Millisecond)
	m.ObserveRequest("tools/call", "error", time.Millisecond)
	m.ObserveRequest("tools/call", "ok", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("tools/call", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("tools/call", "ok")))
}

func TestCatalogReplaced(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.CatalogReplaced(3)
	m.CatalogReplaced(7)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.catalogSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.catalogReloads))
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)
	m.CatalogReplaced(4)

	srv := httptest.NewServer(NewHandler(ServerOptions{
		Registry: registry,
		Health:   func() int { return 4 },
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "atelier_catalog_patterns 4"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var report HealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, HealthReport{Status: "ok", Patterns: 4}, report)
}

func TestStartServer_EmptyAddrIsNoop(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	assert.NoError(t, StartServer(context.Background(), ServerOptions{}, logger))
}

func TestStartServer_StopsOnCancel(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- StartServer(ctx, ServerOptions{Addr: "127.0.0.1:0", Registry: prometheus.NewRegistry()}, logger)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
