package qedis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/puddle/v2"
	"github.com/pior/qedis/resp"
	"github.com/sony/gobreaker/v2"
)

// Executor runs a single command.
type Executor interface {
	Do(ctx context.Context, cmd Command) (any, error)
}

// BatchExecutor runs pipelines of commands.
type BatchExecutor interface {
	Executor
	DoPipeline(ctx context.Context, cmds []Command) ([]any, error)
}

// Client runs commands over one QUIC connection, one pooled stream per
// concurrent operation.
type Client struct {
	addr    string
	conn    *Conn
	pool    *streamPool
	breaker *gobreaker.CircuitBreaker[any] // nil if not configured
	logger  SLogger
	stats   clientStatsCollector

	stopRun context.CancelFunc
	runDone chan struct{}
}

var _ BatchExecutor = (*Client)(nil)

// NewClient connects to addr and starts dispatching replies.
func NewClient(ctx context.Context, addr string, config Config) (*Client, error) {
	if config.MaxStreams <= 0 {
		return nil, fmt.Errorf("qedis: MaxStreams must be > 0, got %d", config.MaxStreams)
	}

	conn, err := Dial(ctx, addr, config)
	if err != nil {
		return nil, err
	}

	pool, err := newStreamPool(conn, config.MaxStreams)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	c := &Client{
		addr:    addr,
		conn:    conn,
		pool:    pool,
		logger:  config.logger(),
		stopRun: stopRun,
		runDone: make(chan struct{}),
	}
	if config.NewCircuitBreaker != nil {
		c.breaker = config.NewCircuitBreaker(addr)
	}

	go c.run(runCtx)
	return c, nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.runDone)
	if err := c.conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("dispatch loop stopped", "error", err)
	}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do runs a single command and returns its reply.
// An error reply from the server is returned as a *resp.Error error.
func (c *Client) Do(ctx context.Context, cmd Command) (any, error) {
	c.stats.recordCommand()

	value, err := c.execute(func() (any, error) {
		return c.withStream(ctx, func(s *Stream) (any, error) {
			return s.Query(ctx, cmd)
		})
	})
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	if replyErr, ok := value.(*resp.Error); ok {
		c.stats.recordServerError()
		return nil, replyErr
	}
	return value, nil
}

// DoPipeline runs the commands as one pipeline on one stream.
// Replies are returned in command order; error replies stay in the slice as *resp.Error.
func (c *Client) DoPipeline(ctx context.Context, cmds []Command) ([]any, error) {
	if len(cmds) == 0 {
		return nil, ErrEmptyPipeline
	}
	c.stats.recordPipeline()

	value, err := c.execute(func() (any, error) {
		return c.withStream(ctx, func(s *Stream) (any, error) {
			return s.Pipeline(ctx, cmds)
		})
	})
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	replies := value.([]any)
	for _, reply := range replies {
		if _, ok := reply.(*resp.Error); ok {
			c.stats.recordServerError()
		}
	}
	return replies, nil
}

// execute wraps fn with the circuit breaker, if configured.
func (c *Client) execute(fn func() (any, error)) (any, error) {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

// withStream runs fn on a pooled stream. The stream is discarded if fn leaves
// it unusable or the peer ended it, otherwise it goes back to the pool.
func (c *Client) withStream(ctx context.Context, fn func(s *Stream) (any, error)) (any, error) {
	res, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}

	stream := res.Value()
	value, err := fn(stream)
	if ShouldCloseStream(err) {
		c.logger.Debug("discarding stream", "stream_id", stream.ID(), "error", err)
		_ = stream.cancel()
		res.Destroy()
		return nil, err
	}
	if stream.ended() {
		c.logger.Debug("discarding stream ended by peer", "stream_id", stream.ID())
		res.Destroy()
		return value, err
	}

	res.Release()
	return value, err
}

// acquire returns a pooled stream the peer has not ended while it sat idle.
func (c *Client) acquire(ctx context.Context) (*puddle.Resource[*Stream], error) {
	for {
		res, err := c.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if !res.Value().ended() {
			return res, nil
		}
		c.logger.Debug("discarding idle stream ended by peer", "stream_id", res.Value().ID())
		res.Destroy()
	}
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// ConnStats returns a snapshot of the connection statistics.
func (c *Client) ConnStats() ConnStats {
	return c.conn.Stats()
}

// PoolStats returns a snapshot of the stream pool statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.Stats()
}

// BreakerStats returns the circuit breaker state and counts.
// ok is false when no circuit breaker is configured.
func (c *Client) BreakerStats() (state gobreaker.State, counts gobreaker.Counts, ok bool) {
	if c.breaker == nil {
		return gobreaker.StateClosed, gobreaker.Counts{}, false
	}
	return c.breaker.State(), c.breaker.Counts(), true
}

// Close fails in-flight operations, discards all streams and closes the connection.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.pool.Close()
	c.stopRun()
	<-c.runDone
	return err
}
