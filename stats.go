package qedis

import (
	"sync/atomic"
)

// ConnStats contains statistics about a connection.
//
// For Prometheus integration, expose these as:
//   - Counters: Queries, Pipelines, Replies, Resets, ProtocolErrors, DroppedChunks, EndedStreams
//   - Gauge: InFlight
type ConnStats struct {
	Queries        uint64 // Single queries issued
	Pipelines      uint64 // Pipelines issued
	Replies        uint64 // Replies parsed
	Resets         uint64 // Requests failed by a stream reset
	ProtocolErrors uint64 // Requests failed by an undecodable reply
	DroppedChunks  uint64 // Data events for streams without a request
	EndedStreams   uint64 // Streams finished or reset by the peer
	InFlight       int64  // Requests currently registered
}

// ClientStats contains statistics about client operations.
//
// For Prometheus integration, expose these as:
//   - Counters: Commands, Pipelines, Errors, ServerErrors
type ClientStats struct {
	Commands     uint64 // Single commands executed
	Pipelines    uint64 // Pipelines executed
	Errors       uint64 // Operations that failed without a reply
	ServerErrors uint64 // Error replies returned by the server
}

// PoolStats contains statistics about the Client stream pool.
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedStreams    uint64 // Total streams opened
	DestroyedStreams  uint64 // Total streams discarded
	AcquireErrors     uint64 // Canceled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalStreams  int32 // Streams in the pool (active + idle)
	IdleStreams   int32 // Idle streams available
	ActiveStreams int32 // Streams currently in use
}

type connStatsCollector struct {
	queries        atomic.Uint64
	pipelines      atomic.Uint64
	replies        atomic.Uint64
	resets         atomic.Uint64
	protocolErrors atomic.Uint64
	droppedChunks  atomic.Uint64
	endedStreams   atomic.Uint64
}

func (c *connStatsCollector) recordQuery()         { c.queries.Add(1) }
func (c *connStatsCollector) recordPipeline()      { c.pipelines.Add(1) }
func (c *connStatsCollector) recordReply()         { c.replies.Add(1) }
func (c *connStatsCollector) recordReset()         { c.resets.Add(1) }
func (c *connStatsCollector) recordProtocolError() { c.protocolErrors.Add(1) }
func (c *connStatsCollector) recordDroppedChunk()  { c.droppedChunks.Add(1) }
func (c *connStatsCollector) recordEndedStream()   { c.endedStreams.Add(1) }

func (c *connStatsCollector) snapshot(inFlight int) ConnStats {
	return ConnStats{
		Queries:        c.queries.Load(),
		Pipelines:      c.pipelines.Load(),
		Replies:        c.replies.Load(),
		Resets:         c.resets.Load(),
		ProtocolErrors: c.protocolErrors.Load(),
		DroppedChunks:  c.droppedChunks.Load(),
		EndedStreams:   c.endedStreams.Load(),
		InFlight:       int64(inFlight),
	}
}

type clientStatsCollector struct {
	commands     atomic.Uint64
	pipelines    atomic.Uint64
	errors       atomic.Uint64
	serverErrors atomic.Uint64
}

func (c *clientStatsCollector) recordCommand()     { c.commands.Add(1) }
func (c *clientStatsCollector) recordPipeline()    { c.pipelines.Add(1) }
func (c *clientStatsCollector) recordError()       { c.errors.Add(1) }
func (c *clientStatsCollector) recordServerError() { c.serverErrors.Add(1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:     c.commands.Load(),
		Pipelines:    c.pipelines.Load(),
		Errors:       c.errors.Load(),
		ServerErrors: c.serverErrors.Load(),
	}
}
