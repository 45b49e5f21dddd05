package qedis

import (
	"context"
)

// Stream issues operations on one transport stream.
//
// A stream carries one operation at a time: a second Query or Pipeline issued
// while one is in flight fails with ErrStreamBusy. Replies on a stream arrive
// in the order the commands were sent.
type Stream struct {
	id   StreamID
	conn *Conn
}

// ID returns the transport stream id.
func (s *Stream) ID() StreamID {
	return s.id
}

// Query sends cmd and waits for its reply.
//
// Error replies from the server are returned as *resp.Error values, not as errors.
// If ctx ends first, the stream is cancelled and ctx.Err() is returned.
func (s *Stream) Query(ctx context.Context, cmd Command) (any, error) {
	payload, err := cmd.AppendTo(nil)
	if err != nil {
		return nil, err
	}

	s.conn.stats.recordQuery()
	s.conn.logger.Debug("query", "stream_id", s.id, "command", cmd.Name())

	return s.conn.execute(ctx, newSingleRequest(s.id), payload)
}

// Pipeline sends all commands in one write and waits for all their replies.
// Replies are returned in command order. The result is all-or-nothing: if the
// stream fails before the last reply, the replies received so far are discarded.
func (s *Stream) Pipeline(ctx context.Context, cmds []Command) ([]any, error) {
	if len(cmds) == 0 {
		return nil, ErrEmptyPipeline
	}
	payload, err := encodeCommands(cmds)
	if err != nil {
		return nil, err
	}

	s.conn.stats.recordPipeline()
	s.conn.logger.Debug("pipeline", "stream_id", s.id, "commands", len(cmds))

	value, err := s.conn.execute(ctx, newBatchRequest(s.id, len(cmds)), payload)
	if err != nil {
		return nil, err
	}
	return value.([]any), nil
}

// Close gracefully finishes the sending side of the stream.
func (s *Stream) Close() error {
	return s.conn.transport.CloseStream(s.id)
}

// ended reports whether the peer finished or reset the stream.
func (s *Stream) ended() bool {
	return s.conn.streamEnded(s.id)
}

// cancel abruptly terminates the stream in both directions.
func (s *Stream) cancel() error {
	return s.conn.transport.CancelStream(s.id)
}
