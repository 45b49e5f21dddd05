package promexporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter manages Prometheus metrics export
type Exporter struct {
	registry *prometheus.Registry
	workload *WorkloadMetrics
}

// NewExporter creates a new Prometheus exporter
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	return &Exporter{
		registry: registry,
		workload: NewWorkloadMetrics(registry),
	}
}

// RegisterClient exposes the statistics of a client, read at scrape time.
func (e *Exporter) RegisterClient(src Source) error {
	return e.registry.Register(NewClientCollector(src))
}

// WorkloadMetrics returns the workload metrics collector
func (e *Exporter) WorkloadMetrics() *WorkloadMetrics {
	return e.workload
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP starts the metrics HTTP server
func (e *Exporter) ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	return http.ListenAndServe(addr, mux)
}
