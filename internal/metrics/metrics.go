// Package metrics exposes Prometheus instrumentation for the pattern server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "atelier"

// PrometheusMetrics records request and catalog metrics.
type PrometheusMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	catalogSize     prometheus.Gauge
	catalogReloads  prometheus.Counter
}

// NewPrometheusMetrics registers the collectors with registerer, or with the
// default registerer when nil.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of JSON-RPC requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of JSON-RPC request handling in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"method"},
		),
		catalogSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_patterns",
				Help:      "Number of patterns in the current catalog",
			},
		),
		catalogReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_replacements_total",
				Help:      "Total number of catalog replacements",
			},
		),
	}
}

// ObserveRequest records one handled request.
func (p *PrometheusMetrics) ObserveRequest(method, outcome string, duration time.Duration) {
	p.requests.WithLabelValues(method, outcome).Inc()
	p.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// CatalogReplaced records a new catalog generation.
func (p *PrometheusMetrics) CatalogReplaced(size int) {
	p.catalogSize.Set(float64(size))
	p.catalogReloads.Inc()
}
