package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/pior/qedis"
)

// ErrTransportClosed is returned by TransportMock after Close.
var ErrTransportClosed = errors.New("testutils: transport closed")

// Flushed is one stream's data written by a Flush.
type Flushed struct {
	StreamID qedis.StreamID
	Data     []byte
}

// TransportMock is an in-memory qedis.Transport.
// It records what is sent and lets tests inject events.
type TransportMock struct {
	// OnFlush is called with each stream's flushed bytes, outside the lock.
	// It may call Emit to answer.
	OnFlush func(id qedis.StreamID, data []byte)

	// SendErr, FlushErr and OpenErr make the matching method fail.
	SendErr  error
	FlushErr error
	OpenErr  error

	mu          sync.Mutex
	nextID      qedis.StreamID
	buffered    map[qedis.StreamID][]byte
	sent        map[qedis.StreamID][]byte
	cancelled   map[qedis.StreamID]bool
	finished    map[qedis.StreamID]bool
	writeErrors map[qedis.StreamID]error
	closed      bool

	events  chan qedis.Event
	flushed chan Flushed
}

var _ qedis.Transport = (*TransportMock)(nil)

// NewTransportMock creates a transport whose client streams are numbered 0, 4, 8...
// like QUIC client-initiated bidirectional streams.
func NewTransportMock() *TransportMock {
	return &TransportMock{
		buffered:  make(map[qedis.StreamID][]byte),
		sent:      make(map[qedis.StreamID][]byte),
		cancelled: make(map[qedis.StreamID]bool),
		finished:  make(map[qedis.StreamID]bool),
		events:    make(chan qedis.Event, 1024),
		flushed:   make(chan Flushed, 1024),
	}
}

func (t *TransportMock) OpenStream(ctx context.Context) (qedis.StreamID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrTransportClosed
	}
	if t.OpenErr != nil {
		return 0, t.OpenErr
	}
	id := t.nextID
	t.nextID += 4
	return id, nil
}

func (t *TransportMock) Send(id qedis.StreamID, p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.SendErr != nil {
		return t.SendErr
	}
	t.buffered[id] = append(t.buffered[id], p...)
	return nil
}

func (t *TransportMock) Flush() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if t.FlushErr != nil {
		t.mu.Unlock()
		return t.FlushErr
	}

	var out []Flushed
	var failed []qedis.StreamReset
	for id, data := range t.buffered {
		delete(t.buffered, id)
		if err, ok := t.writeErrors[id]; ok {
			failed = append(failed, qedis.StreamReset{StreamID: id, Cause: err})
			continue
		}
		t.sent[id] = append(t.sent[id], data...)
		out = append(out, Flushed{StreamID: id, Data: data})
	}
	onFlush := t.OnFlush
	t.mu.Unlock()

	for _, ev := range failed {
		t.Emit(ev)
	}
	for _, f := range out {
		select {
		case t.flushed <- f:
		default:
		}
		if onFlush != nil {
			onFlush(f.StreamID, f.Data)
		}
	}
	return nil
}

func (t *TransportMock) Events() <-chan qedis.Event {
	return t.events
}

func (t *TransportMock) CancelStream(id qedis.StreamID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled[id] = true
	return nil
}

func (t *TransportMock) CloseStream(id qedis.StreamID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished[id] = true
	return nil
}

// Close closes the event feed. Calling it more than once is allowed.
func (t *TransportMock) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.events)
	}
	return nil
}

// FailWrites makes every later write on the stream fail with err. Like the
// QUIC transport, the failure is reported as a StreamReset event for that
// stream, whichever caller flushed it.
func (t *TransportMock) FailWrites(id qedis.StreamID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErrors == nil {
		t.writeErrors = make(map[qedis.StreamID]error)
	}
	t.writeErrors[id] = err
}

// Emit delivers an event on the feed. It is a no-op after Close.
func (t *TransportMock) Emit(ev qedis.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.events <- ev
	}
}

// Flushed returns the flushed data, one entry per stream per Flush.
func (t *TransportMock) Flushed() <-chan Flushed {
	return t.flushed
}

// Sent returns everything flushed on a stream so far.
func (t *TransportMock) Sent(id qedis.StreamID) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.sent[id]...)
}

func (t *TransportMock) Cancelled(id qedis.StreamID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled[id]
}

func (t *TransportMock) Finished(id qedis.StreamID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished[id]
}

func (t *TransportMock) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
