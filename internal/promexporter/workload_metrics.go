package promexporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkloadMetrics holds the load generator metrics
type WorkloadMetrics struct {
	opsTotal *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	opsRate  prometheus.Gauge
}

// NewWorkloadMetrics creates and registers all workload metrics
func NewWorkloadMetrics(registry *prometheus.Registry) *WorkloadMetrics {
	m := &WorkloadMetrics{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qedis_workload_operations_total",
				Help: "Total number of workload operations",
			},
			[]string{"op", "status"}, // status: success, failed
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qedis_workload_latency_seconds",
				Help:    "Workload operation latency",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
			[]string{"op"},
		),
		opsRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qedis_workload_operations_per_second",
				Help: "Current operations per second",
			},
		),
	}

	registry.MustRegister(m.opsTotal, m.latency, m.opsRate)

	return m
}

// RecordOperation records an operation result and its latency
func (m *WorkloadMetrics) RecordOperation(op string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.opsTotal.WithLabelValues(op, status).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetOperationRate sets the current ops/sec
func (m *WorkloadMetrics) SetOperationRate(rate float64) {
	m.opsRate.Set(rate)
}
