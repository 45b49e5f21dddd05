package resp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncomplete is returned by Reader.Next when the buffered bytes do not yet
// hold a complete reply. The buffered bytes are kept; feed more and retry.
var ErrIncomplete = errors.New("resp: incomplete reply")

// Error is an error reply sent by the server ("-ERR ..." or "!<len>...").
//
// It is a reply value, not a transport failure: the stream stays usable and
// the following replies are unaffected.
type Error struct {
	// Kind is KindError or KindBlobError.
	Kind Kind

	// Message is the full error text, including the leading code.
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Code returns the leading upper-case word of the message ("ERR", "WRONGTYPE",
// "NOAUTH", ...), or an empty string if there is none.
func (e *Error) Code() string {
	code, _, _ := strings.Cut(e.Message, " ")
	if code == "" || strings.ToUpper(code) != code {
		return ""
	}
	return code
}

// ParseError represents a malformed reply.
//
// The Reader cannot resynchronize after a parse error: every later call to
// Next returns the same error. The stream the bytes came from must be dropped.
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "resp: parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ArgumentError is returned by the encoder for an argument it cannot serialize.
type ArgumentError struct {
	Index int
	Value any
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("resp: unsupported argument type %T at index %d", e.Value, e.Index)
}

// ErrEmptyCommand is returned by the encoder for a command without arguments.
var ErrEmptyCommand = errors.New("resp: empty command")
