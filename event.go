package qedis

// StreamID identifies a transport stream within one connection.
// It is allocated by the transport and unique for the life of the stream.
type StreamID uint64

// Event is a transport event. The set is closed: DataArrived, StreamReset and
// StreamFinished.
type Event interface {
	streamID() StreamID
}

// DataArrived carries bytes received on a stream, in arrival order.
// Data is owned by the receiver once the event is delivered.
type DataArrived struct {
	StreamID StreamID
	Data     []byte
}

// StreamReset reports that the peer (or the transport) abnormally terminated a stream.
// Cause is set when a local failure, such as a failed write, ended the stream.
type StreamReset struct {
	StreamID  StreamID
	ErrorCode uint64
	Cause     error
}

// StreamFinished reports that the peer gracefully finished its side of a stream.
type StreamFinished struct {
	StreamID StreamID
}

func (e DataArrived) streamID() StreamID    { return e.StreamID }
func (e StreamReset) streamID() StreamID    { return e.StreamID }
func (e StreamFinished) streamID() StreamID { return e.StreamID }
