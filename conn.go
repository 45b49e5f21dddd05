package qedis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pior/qedis/resp"
	"github.com/puzpuzpuz/xsync/v3"
)

// Conn multiplexes Redis commands over the streams of one Transport.
//
// Each stream carries at most one operation at a time; fan-out is achieved by
// opening one stream per concurrent operation. Transport events are dispatched
// by Run, on a single goroutine.
type Conn struct {
	transport Transport
	requests  *requestTable
	ended     *xsync.MapOf[StreamID, struct{}]
	logger    SLogger
	stats     connStatsCollector

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewConn wraps a transport. Run must be started for replies to be delivered.
// A nil logger discards logs.
func NewConn(transport Transport, logger SLogger) *Conn {
	if logger == nil {
		logger = DefaultSLogger()
	}
	return &Conn{
		transport: transport,
		requests:  newRequestTable(),
		ended:     xsync.NewMapOf[StreamID, struct{}](),
		logger:    logger,
		closed:    make(chan struct{}),
	}
}

// OpenStream allocates a new stream. Nothing is sent until the first operation.
func (c *Conn) OpenStream(ctx context.Context) (*Stream, error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}
	id, err := c.transport.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("qedis: open stream: %w", err)
	}
	return &Stream{id: id, conn: c}, nil
}

// Run dispatches transport events until the event feed closes or ctx ends.
// When the feed closes the connection is closed and nil is returned.
func (c *Conn) Run(ctx context.Context) error {
	events := c.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				_ = c.Close()
				return nil
			}
			c.HandleEvent(ev)
		}
	}
}

// HandleEvent processes one transport event.
// It must not be called concurrently; Run is the usual caller.
func (c *Conn) HandleEvent(ev Event) {
	switch ev := ev.(type) {
	case DataArrived:
		c.handleData(ev)
	case StreamReset:
		c.handleReset(ev)
	case StreamFinished:
		c.handleFinished(ev)
	default:
		c.logger.Debug("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Conn) handleData(ev DataArrived) {
	p, ok := c.requests.lookup(ev.StreamID)
	if !ok {
		c.stats.recordDroppedChunk()
		c.logger.Debug("dropping data for stream without request", "stream_id", ev.StreamID, "bytes", len(ev.Data))
		return
	}

	c.logger.Debug("data received", "stream_id", ev.StreamID, "bytes", len(ev.Data))
	p.parser.Feed(ev.Data)

	for {
		reply, err := p.parser.Next()
		if errors.Is(err, resp.ErrIncomplete) {
			return
		}
		if err != nil {
			if c.finalize(p, nil, &ProtocolError{StreamID: ev.StreamID, Err: err}) {
				c.stats.recordProtocolError()
				c.logger.Info("protocol error, cancelling stream", "stream_id", ev.StreamID, "error", err)
				_ = c.transport.CancelStream(ev.StreamID)
			}
			return
		}

		c.stats.recordReply()
		complete := p.accept(reply)
		if p.batch {
			c.logger.Debug("pipelined reply enqueued", "stream_id", ev.StreamID, "count", len(p.replies), "expected", p.expected)
		} else {
			c.logger.Debug("reply received", "stream_id", ev.StreamID)
		}
		if complete {
			if n := p.parser.Buffered(); n > 0 {
				c.logger.Debug("discarding bytes after last reply", "stream_id", ev.StreamID, "bytes", n)
			}
			c.finalize(p, p.completion(), nil)
			return
		}
	}
}

func (c *Conn) handleReset(ev StreamReset) {
	c.markEnded(ev.StreamID)
	p, ok := c.requests.lookup(ev.StreamID)
	if !ok {
		c.logger.Debug("reset for stream without request", "stream_id", ev.StreamID, "error_code", ev.ErrorCode)
		return
	}
	if c.finalize(p, nil, &StreamResetError{StreamID: ev.StreamID, ErrorCode: ev.ErrorCode, Cause: ev.Cause}) {
		c.stats.recordReset()
		if ev.Cause != nil {
			c.logger.Info("stream reset", "stream_id", ev.StreamID, "error_code", ev.ErrorCode, "cause", ev.Cause)
		} else {
			c.logger.Info("stream reset", "stream_id", ev.StreamID, "error_code", ev.ErrorCode)
		}
	}
}

func (c *Conn) handleFinished(ev StreamFinished) {
	c.markEnded(ev.StreamID)
	p, ok := c.requests.lookup(ev.StreamID)
	if !ok {
		return
	}
	if c.finalize(p, nil, ErrStreamClosed) {
		c.logger.Debug("stream finished before all replies arrived", "stream_id", ev.StreamID)
	}
}

// markEnded records that the peer is done with a stream, whether or not a
// request was in flight. Such a stream cannot carry another operation.
func (c *Conn) markEnded(id StreamID) {
	if _, loaded := c.ended.LoadOrStore(id, struct{}{}); !loaded {
		c.stats.recordEndedStream()
	}
}

func (c *Conn) streamEnded(id StreamID) bool {
	_, ok := c.ended.Load(id)
	return ok
}

// forgetStream drops the ended mark once the stream is discarded.
func (c *Conn) forgetStream(id StreamID) {
	c.ended.Delete(id)
}

// finalize removes p from the table and resolves it.
// It reports false if another path already finalized p.
func (c *Conn) finalize(p *pendingRequest, value any, err error) bool {
	if !c.requests.remove(p) {
		return false
	}
	p.resolve(value, err)
	return true
}

// execute registers p, sends payload on its stream and waits for the completion.
func (c *Conn) execute(ctx context.Context, p *pendingRequest, payload []byte) (any, error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}
	if err := c.requests.register(p); err != nil {
		return nil, err
	}
	// Close may have drained the table between the check and the registration.
	if c.isClosed() {
		c.finalize(p, nil, ErrConnClosed)
		<-p.done
		return p.result()
	}
	if c.streamEnded(p.streamID) {
		c.finalize(p, nil, ErrStreamClosed)
		<-p.done
		return p.result()
	}

	if err := c.transport.Send(p.streamID, payload); err != nil {
		c.finalize(p, nil, fmt.Errorf("qedis: send on stream %d: %w", p.streamID, err))
		<-p.done
		return p.result()
	}
	if err := c.transport.Flush(); err != nil {
		c.finalize(p, nil, fmt.Errorf("qedis: flush: %w", err))
		<-p.done
		return p.result()
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		if c.finalize(p, nil, ctx.Err()) {
			_ = c.transport.CancelStream(p.streamID)
		}
		<-p.done
	}
	return p.result()
}

// Close closes the transport and fails every outstanding request with ErrConnClosed.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.transport.Close()

		outstanding := c.requests.drain()
		for _, p := range outstanding {
			p.resolve(nil, ErrConnClosed)
		}
		c.logger.Info("connection closed", "outstanding", len(outstanding))
	})
	return c.closeErr
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Stats returns a snapshot of connection statistics.
func (c *Conn) Stats() ConnStats {
	return c.stats.snapshot(c.requests.size())
}
