// Package resp provides a low-level wire codec for the Redis serialization
// protocol, RESP2 and RESP3.
//
// This package serves as the foundation of the qedis client. It only deals with
// serializing commands and decoding replies, without imposing any transport or
// connection management on the caller.
//
// # Encoding
//
// Commands are sent as arrays of bulk strings:
//
//	buf, err := resp.AppendCommand(nil, "SET", "key", 42)
//	// "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$2\r\n42\r\n"
//
// # Decoding
//
// Reader is push-based: bytes are fed as they arrive, in any chunking, and
// complete replies are pulled out one at a time. ErrIncomplete means more bytes
// are needed:
//
//	r := resp.NewReader()
//	r.Feed(chunk)
//	for {
//	    reply, err := r.Next()
//	    if err == resp.ErrIncomplete {
//	        break // wait for the next chunk
//	    }
//	    if err != nil {
//	        return err // *ParseError, the stream is corrupted
//	    }
//	    handle(reply)
//	}
//
// This shape fits multiplexed transports such as QUIC, where data for a stream is
// delivered as events rather than read from a blocking io.Reader.
//
// # Error Handling
//
//   - *Error: an error reply from the server. It is a regular reply value and
//     the stream remains usable.
//   - *ParseError: malformed input. Sticky; the stream must be dropped.
//   - *ArgumentError, ErrEmptyCommand: the encoder rejected a command before
//     anything was written.
//
// # Thread Safety
//
// AppendCommand and WriteCommand are safe for concurrent use. A Reader is not.
package resp
