package promexporter

import (
	"github.com/pior/qedis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Source provides the statistics of a client. *qedis.Client implements it.
type Source interface {
	Addr() string
	Stats() qedis.ClientStats
	ConnStats() qedis.ConnStats
	PoolStats() qedis.PoolStats
	BreakerStats() (gobreaker.State, gobreaker.Counts, bool)
}

var _ Source = (*qedis.Client)(nil)

var (
	clientOpsDesc = prometheus.NewDesc(
		"qedis_client_operations_total",
		"Total number of client operations",
		[]string{"server", "type"}, // command, pipeline
		nil,
	)
	clientErrorsDesc = prometheus.NewDesc(
		"qedis_client_errors_total",
		"Total number of failed client operations",
		[]string{"server", "kind"}, // transport, server
		nil,
	)
	connEventsDesc = prometheus.NewDesc(
		"qedis_conn_events_total",
		"Connection events",
		[]string{"server", "event"}, // replies, resets, protocol_errors, dropped_chunks, ended_streams
		nil,
	)
	connInFlightDesc = prometheus.NewDesc(
		"qedis_conn_requests_in_flight",
		"Requests waiting for their replies",
		[]string{"server"},
		nil,
	)
	poolStreamsDesc = prometheus.NewDesc(
		"qedis_pool_streams",
		"Stream pool statistics",
		[]string{"server", "state"}, // total, active, idle
		nil,
	)
	poolLifecycleDesc = prometheus.NewDesc(
		"qedis_pool_streams_lifecycle_total",
		"Streams opened and discarded by the pool",
		[]string{"server", "event"}, // created, destroyed
		nil,
	)
	poolAcquireDesc = prometheus.NewDesc(
		"qedis_pool_acquires_total",
		"Stream acquire attempts",
		[]string{"server", "result"}, // total, waited, canceled
		nil,
	)
	circuitStateDesc = prometheus.NewDesc(
		"qedis_circuit_breaker_state",
		"Circuit breaker state (0=closed, 1=half-open, 2=open)",
		[]string{"server"},
		nil,
	)
	circuitFailuresDesc = prometheus.NewDesc(
		"qedis_circuit_breaker_failures",
		"Circuit breaker failure counts",
		[]string{"server", "type"}, // total, consecutive
		nil,
	)
)

// ClientCollector reads client statistics at scrape time.
type ClientCollector struct {
	src Source
}

var _ prometheus.Collector = (*ClientCollector)(nil)

func NewClientCollector(src Source) *ClientCollector {
	return &ClientCollector{src: src}
}

func (c *ClientCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- clientOpsDesc
	ch <- clientErrorsDesc
	ch <- connEventsDesc
	ch <- connInFlightDesc
	ch <- poolStreamsDesc
	ch <- poolLifecycleDesc
	ch <- poolAcquireDesc
	ch <- circuitStateDesc
	ch <- circuitFailuresDesc
}

func (c *ClientCollector) Collect(ch chan<- prometheus.Metric) {
	server := c.src.Addr()
	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), append([]string{server}, labels...)...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, append([]string{server}, labels...)...)
	}

	stats := c.src.Stats()
	counter(clientOpsDesc, stats.Commands, "command")
	counter(clientOpsDesc, stats.Pipelines, "pipeline")
	counter(clientErrorsDesc, stats.Errors, "transport")
	counter(clientErrorsDesc, stats.ServerErrors, "server")

	conn := c.src.ConnStats()
	counter(connEventsDesc, conn.Replies, "replies")
	counter(connEventsDesc, conn.Resets, "resets")
	counter(connEventsDesc, conn.ProtocolErrors, "protocol_errors")
	counter(connEventsDesc, conn.DroppedChunks, "dropped_chunks")
	counter(connEventsDesc, conn.EndedStreams, "ended_streams")
	gauge(connInFlightDesc, float64(conn.InFlight))

	pool := c.src.PoolStats()
	gauge(poolStreamsDesc, float64(pool.TotalStreams), "total")
	gauge(poolStreamsDesc, float64(pool.ActiveStreams), "active")
	gauge(poolStreamsDesc, float64(pool.IdleStreams), "idle")
	counter(poolLifecycleDesc, pool.CreatedStreams, "created")
	counter(poolLifecycleDesc, pool.DestroyedStreams, "destroyed")
	counter(poolAcquireDesc, pool.AcquireCount, "total")
	counter(poolAcquireDesc, pool.AcquireWaitCount, "waited")
	counter(poolAcquireDesc, pool.AcquireErrors, "canceled")

	if state, counts, ok := c.src.BreakerStats(); ok {
		gauge(circuitStateDesc, float64(state))
		gauge(circuitFailuresDesc, float64(counts.TotalFailures), "total")
		gauge(circuitFailuresDesc, float64(counts.ConsecutiveFailures), "consecutive")
	}
}
