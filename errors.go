package qedis

import (
	"errors"
	"fmt"

	"github.com/pior/qedis/resp"
)

var (
	// ErrStreamBusy is returned when an operation is issued on a stream that
	// already has one in flight. Streams carry one operation at a time.
	ErrStreamBusy = errors.New("qedis: stream busy")

	// ErrEmptyPipeline is returned by Pipeline for an empty command list.
	ErrEmptyPipeline = errors.New("qedis: empty pipeline")

	// ErrStreamReset matches every *StreamResetError.
	ErrStreamReset = errors.New("qedis: stream reset")

	// ErrStreamClosed is returned when the peer finished the stream before all
	// replies arrived.
	ErrStreamClosed = errors.New("qedis: stream closed by peer")

	// ErrConnClosed is returned for operations on, or outstanding during, a closed connection.
	ErrConnClosed = errors.New("qedis: connection closed")

	// ErrPoolClosed is returned by the client stream pool after Close.
	ErrPoolClosed = errors.New("qedis: pool closed")
)

// StreamResetError reports that the transport abnormally terminated a stream
// before the expected replies arrived.
type StreamResetError struct {
	StreamID  StreamID
	ErrorCode uint64
	Cause     error // nil when the peer reset the stream
}

func (e *StreamResetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("qedis: stream %d reset (error code %#x): %v", e.StreamID, e.ErrorCode, e.Cause)
	}
	return fmt.Sprintf("qedis: stream %d reset (error code %#x)", e.StreamID, e.ErrorCode)
}

func (e *StreamResetError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrStreamReset) true.
func (e *StreamResetError) Is(target error) bool {
	return target == ErrStreamReset
}

// ProtocolError reports that the replies on a stream could not be decoded.
// The stream is cancelled: its byte sequence can't be resynchronized.
type ProtocolError struct {
	StreamID StreamID
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("qedis: protocol error on stream %d: %v", e.StreamID, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseStream reports whether a stream must be discarded after err.
//
// Returns false for:
//   - nil
//   - *resp.Error (an error reply; the stream is healthy)
//   - ErrStreamBusy, ErrEmptyPipeline, *resp.ArgumentError, resp.ErrEmptyCommand
//     (rejected before any I/O)
//
// Returns true for everything else: resets, protocol errors, closed streams,
// transport failures and cancelled waits.
func ShouldCloseStream(err error) bool {
	if err == nil {
		return false
	}

	var replyErr *resp.Error
	var argErr *resp.ArgumentError
	switch {
	case errors.As(err, &replyErr),
		errors.As(err, &argErr),
		errors.Is(err, resp.ErrEmptyCommand),
		errors.Is(err, ErrStreamBusy),
		errors.Is(err, ErrEmptyPipeline):
		return false
	}
	return true
}
