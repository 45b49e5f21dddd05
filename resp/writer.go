package resp

import (
	"bytes"
	"io"
	"strconv"
	"sync"
)

// Buffer pool for building commands
var bufferPool = sync.Pool{
	New: func() any {
		// Typical command is well under 256 bytes
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	// Don't keep huge buffers around after a large SET
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// AppendCommand serializes a command as a RESP array of bulk strings and
// appends it to dst.
// Format: *<argc>\r\n($<len>\r\n<arg>\r\n)*
//
// Supported argument types: string, []byte, all signed and unsigned integer
// types, float32 and float64. Numbers are sent in their decimal text form, which
// is how Redis expects them.
//
// On error dst is returned unchanged together with an *ArgumentError or
// ErrEmptyCommand.
func AppendCommand(dst []byte, args ...any) ([]byte, error) {
	if len(args) == 0 {
		return dst, ErrEmptyCommand
	}

	orig := len(dst)
	dst = append(dst, byte(KindArray))
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, CRLF...)

	var scratch [32]byte
	for i, arg := range args {
		var b []byte
		switch v := arg.(type) {
		case string:
			dst = appendBulkString(dst, v)
			continue
		case []byte:
			b = v
		case int:
			b = strconv.AppendInt(scratch[:0], int64(v), 10)
		case int8:
			b = strconv.AppendInt(scratch[:0], int64(v), 10)
		case int16:
			b = strconv.AppendInt(scratch[:0], int64(v), 10)
		case int32:
			b = strconv.AppendInt(scratch[:0], int64(v), 10)
		case int64:
			b = strconv.AppendInt(scratch[:0], v, 10)
		case uint:
			b = strconv.AppendUint(scratch[:0], uint64(v), 10)
		case uint8:
			b = strconv.AppendUint(scratch[:0], uint64(v), 10)
		case uint16:
			b = strconv.AppendUint(scratch[:0], uint64(v), 10)
		case uint32:
			b = strconv.AppendUint(scratch[:0], uint64(v), 10)
		case uint64:
			b = strconv.AppendUint(scratch[:0], v, 10)
		case float32:
			b = strconv.AppendFloat(scratch[:0], float64(v), 'f', -1, 32)
		case float64:
			b = strconv.AppendFloat(scratch[:0], v, 'f', -1, 64)
		default:
			return dst[:orig], &ArgumentError{Index: i, Value: arg}
		}
		dst = appendBulkBytes(dst, b)
	}

	return dst, nil
}

func appendBulkString(dst []byte, s string) []byte {
	dst = append(dst, byte(KindBulkString))
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, CRLF...)
	dst = append(dst, s...)
	return append(dst, CRLF...)
}

func appendBulkBytes(dst []byte, b []byte) []byte {
	dst = append(dst, byte(KindBulkString))
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, CRLF...)
	dst = append(dst, b...)
	return append(dst, CRLF...)
}

// WriteCommand serializes a command and writes it to w in a single Write call.
func WriteCommand(w io.Writer, args ...any) error {
	buf := getBuffer()
	defer putBuffer(buf)

	b, err := AppendCommand(buf.AvailableBuffer(), args...)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}
