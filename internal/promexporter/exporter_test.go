package promexporter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pior/qedis"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	breaker bool
}

func (fakeSource) Addr() string { return "localhost:6380" }

func (fakeSource) Stats() qedis.ClientStats {
	return qedis.ClientStats{Commands: 10, Pipelines: 2, Errors: 1, ServerErrors: 3}
}

func (fakeSource) ConnStats() qedis.ConnStats {
	return qedis.ConnStats{Replies: 15, Resets: 1, InFlight: 2}
}

func (fakeSource) PoolStats() qedis.PoolStats {
	return qedis.PoolStats{TotalStreams: 4, ActiveStreams: 1, IdleStreams: 3, CreatedStreams: 5, DestroyedStreams: 1}
}

func (s fakeSource) BreakerStats() (gobreaker.State, gobreaker.Counts, bool) {
	return gobreaker.StateOpen, gobreaker.Counts{TotalFailures: 6, ConsecutiveFailures: 4}, s.breaker
}

func TestClientCollector(t *testing.T) {
	// 4 ops/errors + 5 events + 1 in-flight + 3 pool + 2 lifecycle + 3 acquires
	assert.Equal(t, 18, testutil.CollectAndCount(NewClientCollector(fakeSource{})))

	// + 1 state + 2 failures
	assert.Equal(t, 21, testutil.CollectAndCount(NewClientCollector(fakeSource{breaker: true})))

	expected := `
# HELP qedis_pool_streams Stream pool statistics
# TYPE qedis_pool_streams gauge
qedis_pool_streams{server="localhost:6380",state="active"} 1
qedis_pool_streams{server="localhost:6380",state="idle"} 3
qedis_pool_streams{server="localhost:6380",state="total"} 4
`
	err := testutil.CollectAndCompare(NewClientCollector(fakeSource{}), strings.NewReader(expected), "qedis_pool_streams")
	require.NoError(t, err)
}

func TestWorkloadMetrics(t *testing.T) {
	e := NewExporter()
	m := e.WorkloadMetrics()

	m.RecordOperation("get", true, time.Millisecond)
	m.RecordOperation("get", true, time.Millisecond)
	m.RecordOperation("set", false, time.Millisecond)
	m.SetOperationRate(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("set", "failed")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.opsRate))
}

func TestExporter_Handler(t *testing.T) {
	e := NewExporter()
	require.NoError(t, e.RegisterClient(fakeSource{breaker: true}))
	e.WorkloadMetrics().RecordOperation("get", true, time.Millisecond)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `qedis_client_operations_total{server="localhost:6380",type="command"} 10`)
	assert.Contains(t, string(body), `qedis_circuit_breaker_state{server="localhost:6380"} 2`)
	assert.Contains(t, string(body), `qedis_workload_operations_total{op="get",status="success"} 1`)
}
