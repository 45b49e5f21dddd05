package qedis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/quic-go/quic-go"
)

const (
	readBufferSize   = 16 * 1024
	writeBufferSize  = 4 * 1024
	eventBufferSize  = 256
	streamCancelCode = quic.StreamErrorCode(0)
	connCloseCode    = quic.ApplicationErrorCode(0)
	connCloseReason  = "client closing"
)

var writeBuffers = newByteBufferPool(writeBufferSize)

// Dial opens a QUIC connection (or the transport returned by config.Dialer)
// and wraps it. The caller must start Run.
func Dial(ctx context.Context, addr string, config Config) (*Conn, error) {
	dial := config.Dialer
	if dial == nil {
		dial = DialQUIC
	}
	transport, err := dial(ctx, addr, config)
	if err != nil {
		return nil, err
	}
	return NewConn(transport, config.logger()), nil
}

// DialQUIC opens a QUIC connection to addr and returns it as a Transport.
func DialQUIC(ctx context.Context, addr string, config Config) (Transport, error) {
	logger := config.logger()

	quicConf := &quic.Config{
		KeepAlivePeriod:      config.KeepAlivePeriod,
		HandshakeIdleTimeout: config.HandshakeTimeout,
		MaxIdleTimeout:       config.MaxIdleTimeout,
	}

	conn, err := quic.DialAddr(ctx, addr, config.tlsConfig(), quicConf)
	if err != nil {
		return nil, fmt.Errorf("qedis: dial %s: %w", addr, err)
	}
	logger.Info("quic connection established",
		"remote_addr", conn.RemoteAddr().String(),
		"alpn", conn.ConnectionState().TLS.NegotiatedProtocol,
	)

	return newQUICTransport(conn, logger), nil
}

// quicTransport adapts a quic-go connection to Transport.
// Each stream has a reader goroutine turning reads into events.
type quicTransport struct {
	conn   *quic.Conn
	logger SLogger

	mu      sync.Mutex
	streams map[StreamID]*quicStream
	dirty   []*quicStream

	eventsMu     sync.RWMutex
	events       chan Event
	eventsClosed bool
	done         chan struct{}
}

type quicStream struct {
	id     StreamID
	stream *quic.Stream
	buf    *bytes.Buffer
	dirty  bool
}

func newQUICTransport(conn *quic.Conn, logger SLogger) *quicTransport {
	t := &quicTransport{
		conn:    conn,
		logger:  logger,
		streams: make(map[StreamID]*quicStream),
		events:  make(chan Event, eventBufferSize),
		done:    make(chan struct{}),
	}
	go t.watch()
	return t
}

// watch closes the event feed once the connection is gone.
func (t *quicTransport) watch() {
	<-t.conn.Context().Done()
	close(t.done)

	t.eventsMu.Lock()
	t.eventsClosed = true
	close(t.events)
	t.eventsMu.Unlock()

	t.logger.Info("quic connection ended", "cause", context.Cause(t.conn.Context()))
}

func (t *quicTransport) emit(ev Event) {
	t.eventsMu.RLock()
	defer t.eventsMu.RUnlock()
	if t.eventsClosed {
		return
	}
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

func (t *quicTransport) OpenStream(ctx context.Context) (StreamID, error) {
	stream, err := t.conn.OpenStreamSync(ctx)
	if err != nil {
		return 0, err
	}
	id := StreamID(stream.StreamID())

	t.mu.Lock()
	t.streams[id] = &quicStream{id: id, stream: stream}
	t.mu.Unlock()

	go t.readLoop(id, stream)
	return id, nil
}

func (t *quicTransport) readLoop(id StreamID, stream *quic.Stream) {
	defer t.forget(id)

	buf := make([]byte, readBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			t.emit(DataArrived{StreamID: id, Data: append([]byte(nil), buf[:n]...)})
		}
		if err == nil {
			continue
		}

		var streamErr *quic.StreamError
		switch {
		case errors.Is(err, io.EOF):
			// The stream is forgotten below, so finish our side now.
			_ = stream.Close()
			t.emit(StreamFinished{StreamID: id})
		case errors.As(err, &streamErr):
			t.emit(StreamReset{StreamID: id, ErrorCode: uint64(streamErr.ErrorCode)})
		default:
			t.logger.Debug("stream read failed", "stream_id", id, "error", err)
			t.emit(StreamReset{StreamID: id, Cause: err})
		}
		return
	}
}

func (t *quicTransport) forget(id StreamID) {
	t.mu.Lock()
	delete(t.streams, id)
	t.mu.Unlock()
}

func (t *quicTransport) lookup(id StreamID) (*quicStream, error) {
	s, ok := t.streams[id]
	if !ok {
		return nil, fmt.Errorf("qedis: unknown stream %d", id)
	}
	return s, nil
}

func (t *quicTransport) Send(id StreamID, p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	if s.buf == nil {
		s.buf = writeBuffers.Get()
	}
	s.buf.Write(p)
	if !s.dirty {
		s.dirty = true
		t.dirty = append(t.dirty, s)
	}
	return nil
}

// Flush writes the buffered data of every stream.
// Each stream's data is written by exactly one Flush call, which may belong to
// another stream's operation, so write failures are emitted as events for the
// stream that failed.
func (t *quicTransport) Flush() error {
	t.mu.Lock()
	dirty := t.dirty
	t.dirty = nil
	pending := make([]*bytes.Buffer, len(dirty))
	for i, s := range dirty {
		pending[i] = s.buf
		s.buf = nil
		s.dirty = false
	}
	t.mu.Unlock()

	for i, s := range dirty {
		_, err := s.stream.Write(pending[i].Bytes())
		writeBuffers.Put(pending[i])
		if err != nil {
			t.logger.Debug("stream write failed", "stream_id", s.id, "error", err)
			t.emit(writeFailure(s.id, err))
		}
	}

	if err := t.conn.Context().Err(); err != nil {
		return fmt.Errorf("qedis: connection ended: %w", context.Cause(t.conn.Context()))
	}
	return nil
}

// writeFailure turns a write error into a reset of the stream it happened on.
func writeFailure(id StreamID, err error) StreamReset {
	ev := StreamReset{StreamID: id, Cause: err}
	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		ev.ErrorCode = uint64(streamErr.ErrorCode)
	}
	return ev
}

func (t *quicTransport) Events() <-chan Event {
	return t.events
}

func (t *quicTransport) CancelStream(id StreamID) error {
	t.mu.Lock()
	s, err := t.lookup(id)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	s.stream.CancelRead(streamCancelCode)
	s.stream.CancelWrite(streamCancelCode)
	return nil
}

func (t *quicTransport) CloseStream(id StreamID) error {
	t.mu.Lock()
	s, err := t.lookup(id)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return s.stream.Close()
}

func (t *quicTransport) Close() error {
	return t.conn.CloseWithError(connCloseCode, connCloseReason)
}
