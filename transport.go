package qedis

import "context"

// Transport is the multi-stream connection the client runs over.
//
// The QUIC implementation is returned by Dial; tests use an in-memory one.
type Transport interface {
	// OpenStream allocates the next client-initiated bidirectional stream.
	OpenStream(ctx context.Context) (StreamID, error)

	// Send buffers p for the stream. Nothing is guaranteed to reach the wire
	// before Flush. p may be retained until Flush returns.
	Send(id StreamID, p []byte) error

	// Flush writes all buffered data, whichever stream it was sent on.
	// A write failure on one stream is reported as a StreamReset event for
	// that stream, not as a Flush error. Flush errors are reserved for failures
	// of the whole connection.
	Flush() error

	// Events returns the event feed. Events for one stream are delivered in
	// order. The channel is closed when the connection ends.
	Events() <-chan Event

	// CancelStream abruptly terminates both directions of a stream.
	CancelStream(id StreamID) error

	// CloseStream gracefully finishes the send direction of a stream.
	CloseStream(id StreamID) error

	// Close closes the connection and all its streams.
	Close() error
}
