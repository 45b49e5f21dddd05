package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/qedis"
	"github.com/pior/qedis/internal/promexporter"
)

type BenchmarkResult struct {
	Operation    string
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

type bench struct {
	client      *qedis.Client
	metrics     *promexporter.WorkloadMetrics
	duration    time.Duration
	concurrency int
	out         io.Writer
}

// recorder accumulates the outcome of the operations of one benchmark run.
type recorder struct {
	name    string
	metrics *promexporter.WorkloadMetrics

	totalOps     atomic.Int64
	successes    atomic.Int64
	failures     atomic.Int64
	totalLatency atomic.Int64

	mu          sync.Mutex
	correctness bool
	errMessage  string
}

// time runs fn as one operation. fn returns false when the operation failed.
func (r *recorder) time(fn func() bool) bool {
	start := time.Now()
	ok := fn()
	elapsed := time.Since(start)

	r.totalOps.Add(1)
	r.totalLatency.Add(int64(elapsed))
	if ok {
		r.successes.Add(1)
	} else {
		r.failures.Add(1)
	}
	r.metrics.RecordOperation(r.name, ok, elapsed)
	return ok
}

func (r *recorder) incorrect(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.correctness = false
	r.errMessage = message
}

type worker func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int)

func (b *bench) run(ctx context.Context, name string) *BenchmarkResult {
	op, ok := operations[name]
	if !ok {
		return &BenchmarkResult{
			Operation:    name,
			Correctness:  false,
			ErrorMessage: fmt.Sprintf("Unknown operation: %s", name),
		}
	}

	if op.setup != nil {
		if err := op.setup(ctx, b.client); err != nil {
			return &BenchmarkResult{
				Operation:    name,
				Correctness:  false,
				ErrorMessage: fmt.Sprintf("Setup failed: %v", err),
			}
		}
	}

	r := &recorder{name: name, metrics: b.metrics, correctness: true}
	stopRate := b.reportRate(r)
	defer stopRate()

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for iteration := 0; time.Since(startTime) < b.duration && ctx.Err() == nil; iteration++ {
				op.worker(ctx, r, b.client, workerID, iteration)
			}
		}(i)
	}
	wg.Wait()

	result := &BenchmarkResult{
		Operation:    name,
		Duration:     time.Since(startTime),
		TotalOps:     r.totalOps.Load(),
		Successes:    r.successes.Load(),
		Failures:     r.failures.Load(),
		Correctness:  r.correctness,
		ErrorMessage: r.errMessage,
	}
	if result.TotalOps > 0 {
		result.AvgLatency = time.Duration(r.totalLatency.Load() / result.TotalOps)
		result.OpsPerSecond = float64(result.TotalOps) / result.Duration.Seconds()
	}
	return result
}

// reportRate publishes the operation rate every second until stopped.
func (b *bench) reportRate(r *recorder) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		last := int64(0)
		for {
			select {
			case <-done:
				b.metrics.SetOperationRate(0)
				return
			case <-ticker.C:
				total := r.totalOps.Load()
				b.metrics.SetOperationRate(float64(total - last))
				last = total
			}
		}
	}()
	return func() { close(done) }
}

func (b *bench) print(result *BenchmarkResult) {
	out := b.out
	fmt.Fprintf(out, "Operation: %s\n", result.Operation)
	fmt.Fprintf(out, "Duration: %v\n", result.Duration)
	fmt.Fprintf(out, "Total Operations: %d\n", result.TotalOps)
	fmt.Fprintf(out, "Successes: %d\n", result.Successes)
	fmt.Fprintf(out, "Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Fprintf(out, "Success Rate: %.2f%%\n", float64(result.Successes)/float64(result.TotalOps)*100)
		fmt.Fprintf(out, "Ops/sec: %.2f\n", result.OpsPerSecond)
		fmt.Fprintf(out, "Avg Latency: %v\n", result.AvgLatency)
	}
	fmt.Fprintf(out, "Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", result.ErrorMessage)
	}

	stats := b.client.Stats()
	fmt.Fprintf(out, "Client: commands=%d pipelines=%d errors=%d\n", stats.Commands, stats.Pipelines, stats.Errors)
	fmt.Fprintln(out)
}
