package qedis

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// streamPool keeps idle streams of one connection for reuse.
// An acquired stream is exclusively held, so it never carries two operations at once.
type streamPool struct {
	pool             *puddle.Pool[*Stream]
	createdStreams   atomic.Uint64
	destroyedStreams atomic.Uint64
}

func newStreamPool(conn *Conn, maxSize int32) (*streamPool, error) {
	p := &streamPool{}

	poolConfig := &puddle.Config[*Stream]{
		Constructor: func(ctx context.Context) (*Stream, error) {
			s, err := conn.OpenStream(ctx)
			if err == nil {
				p.createdStreams.Add(1)
			}
			return s, err
		},
		Destructor: func(s *Stream) {
			p.destroyedStreams.Add(1)
			_ = s.Close()
			conn.forgetStream(s.ID())
		},
		MaxSize: maxSize,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

func (p *streamPool) Acquire(ctx context.Context) (*puddle.Resource[*Stream], error) {
	res, err := p.pool.Acquire(ctx)
	if errors.Is(err, puddle.ErrClosedPool) {
		return nil, ErrPoolClosed
	}
	return res, err
}

func (p *streamPool) Close() {
	p.pool.Close()
}

// Stats maps puddle's statistics to PoolStats.
func (p *streamPool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalStreams:      s.TotalResources(),
		IdleStreams:       s.IdleResources(),
		ActiveStreams:     s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedStreams:    p.createdStreams.Load(),
		DestroyedStreams:  p.destroyedStreams.Load(),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
