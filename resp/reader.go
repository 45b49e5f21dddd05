package resp

import (
	"bytes"
	"math/big"
	"strconv"
)

// maxLineLength bounds a header or simple line. Real servers send short lines;
// anything longer without a terminator is garbage.
const maxLineLength = 64 * 1024

var crlfBytes = []byte(CRLF)

// Reader is an incremental RESP2/RESP3 reply decoder.
//
// Bytes are pushed in with Feed as they arrive from the network, in any chunking,
// and complete replies are pulled out with Next. A Reader holds the decoder state
// of exactly one ordered byte stream and must not be shared between streams.
//
// Decoded Go types:
//
//	simple string, bulk string, verbatim string -> string
//	error, blob error                            -> *Error
//	integer                                      -> int64
//	double                                       -> float64
//	boolean                                      -> bool
//	big number                                   -> *big.Int
//	null, RESP2 null bulk/array                  -> nil
//	array, set                                   -> []any
//	map                                          -> map[any]any
//	push                                         -> *Push
//
// Attributes are parsed and discarded; the reply they annotate is returned.
//
// Reader is not safe for concurrent use.
type Reader struct {
	buf []byte
	pos int
	err error

	// Aggregates opened by the reply being decoded, innermost last.
	stack []*frame
	// Bytes of the reply being decoded that were already consumed into stack.
	partial int
}

// frame is an aggregate whose elements are still arriving.
type frame struct {
	kind      Kind
	remaining int64 // elements, or pairs for maps and attributes
	elems     []any
	m         map[any]any
	key       any
	hasKey    bool
}

func (f *frame) add(v any) error {
	switch f.kind {
	case KindMap, KindAttribute:
		if !f.hasKey {
			key, ok := mapKey(v)
			if !ok {
				return &ParseError{Message: "map key is not a scalar"}
			}
			f.key, f.hasKey = key, true
			return nil
		}
		f.m[f.key] = v
		f.key, f.hasKey = nil, false
	default:
		f.elems = append(f.elems, v)
	}
	f.remaining--
	return nil
}

func (f *frame) value() any {
	switch f.kind {
	case KindMap:
		return f.m
	case KindPush:
		name, _ := f.elems[0].(string)
		return &Push{Kind: name, Data: f.elems[1:]}
	default:
		return f.elems
	}
}

// NewReader returns an empty Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Feed appends p to the internal buffer. p is copied and may be reused by the caller.
// Feed is a no-op once the Reader has failed.
func (r *Reader) Feed(p []byte) {
	if r.err != nil || len(p) == 0 {
		return
	}

	// Drop consumed bytes before growing
	if r.pos > 0 {
		n := copy(r.buf, r.buf[r.pos:])
		r.buf = r.buf[:n]
		r.pos = 0
	}

	r.buf = append(r.buf, p...)
}

// Buffered returns the number of bytes fed but not yet returned as part of a
// complete reply.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.pos + r.partial
}

// HasData reports whether some bytes are buffered. It does not imply a complete
// reply is available.
func (r *Reader) HasData() bool {
	return r.Buffered() > 0
}

// Err returns the sticky parse error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Next decodes and consumes one reply.
//
// Returns ErrIncomplete when the buffered bytes hold no complete reply. The
// elements decoded so far are kept, and the next call resumes after them, so a
// large reply fed in many chunks is decoded in linear time. Returns a
// *ParseError on malformed input; the error is sticky and the Reader is
// unusable afterwards.
func (r *Reader) Next() (any, error) {
	if r.err != nil {
		return nil, r.err
	}

	for {
		v, ok, err := r.readElement()
		if err == nil && ok {
			v, ok, err = r.attach(v)
		}
		if err != nil {
			if err != ErrIncomplete {
				r.err = err
			}
			return nil, err
		}
		if !ok {
			continue
		}

		r.partial = 0
		if r.pos == len(r.buf) {
			r.buf = r.buf[:0]
			r.pos = 0
		}
		return v, nil
	}
}

// Reset discards buffered bytes and partial replies and clears the sticky error.
func (r *Reader) Reset() {
	r.buf = r.buf[:0]
	r.pos = 0
	r.err = nil
	r.stack = r.stack[:0]
	r.partial = 0
}

func (r *Reader) consume(next int) {
	r.partial += next - r.pos
	r.pos = next
}

// attach adds a decoded element to the innermost open aggregate, closing every
// aggregate it completes. done reports that v is a whole reply.
func (r *Reader) attach(v any) (any, bool, error) {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if err := top.add(v); err != nil {
			return nil, false, err
		}
		if top.remaining > 0 {
			return nil, false, nil
		}

		r.stack[len(r.stack)-1] = nil
		r.stack = r.stack[:len(r.stack)-1]
		if top.kind == KindAttribute {
			// The attribute annotates the element that follows it
			return nil, false, nil
		}
		v = top.value()
	}
	return v, true, nil
}

// readLine returns the line starting at pos without its CRLF and the position
// just after the CRLF.
func (r *Reader) readLine(pos int) ([]byte, int, error) {
	idx := bytes.IndexByte(r.buf[pos:], '\n')
	if idx == -1 {
		if len(r.buf)-pos > maxLineLength {
			return nil, 0, &ParseError{Message: "line exceeds maximum length"}
		}
		return nil, 0, ErrIncomplete
	}
	if idx == 0 || r.buf[pos+idx-1] != '\r' {
		return nil, 0, &ParseError{Message: "line not terminated by CRLF"}
	}
	return r.buf[pos : pos+idx-1], pos + idx + 1, nil
}

// readElement decodes the element at r.pos. ok is false when the element
// opened an aggregate, whose elements follow.
func (r *Reader) readElement() (any, bool, error) {
	if len(r.stack) > MaxDepth {
		return nil, false, &ParseError{Message: "aggregate nesting too deep"}
	}

	line, next, err := r.readLine(r.pos)
	if err != nil {
		return nil, false, err
	}
	if len(line) == 0 {
		return nil, false, &ParseError{Message: "empty line"}
	}

	kind, body := Kind(line[0]), line[1:]
	switch kind {
	case KindBulkString, KindBlobError, KindVerbatimString:
		v, end, err := r.parseBlob(kind, body, next)
		if err != nil {
			return nil, false, err
		}
		r.consume(end)
		return v, true, nil

	case KindArray, KindSet, KindPush, KindMap, KindAttribute:
		return r.openAggregate(kind, body, next)
	}

	v, err := parseScalar(kind, body)
	if err != nil {
		return nil, false, err
	}
	r.consume(next)
	return v, true, nil
}

func parseScalar(kind Kind, body []byte) (any, error) {
	switch kind {
	case KindSimpleString:
		return string(body), nil

	case KindError:
		return &Error{Kind: KindError, Message: string(body)}, nil

	case KindInteger:
		return parseInt(body)

	case KindNull:
		if len(body) != 0 {
			return nil, &ParseError{Message: "invalid null"}
		}
		return nil, nil

	case KindDouble:
		f, err := strconv.ParseFloat(string(body), 64)
		if err != nil {
			return nil, &ParseError{Message: "invalid double", Err: err}
		}
		return f, nil

	case KindBoolean:
		switch string(body) {
		case "t":
			return true, nil
		case "f":
			return false, nil
		}
		return nil, &ParseError{Message: "invalid boolean"}

	case KindBigNumber:
		n, ok := new(big.Int).SetString(string(body), 10)
		if !ok {
			return nil, &ParseError{Message: "invalid big number"}
		}
		return n, nil

	default:
		return nil, &ParseError{Message: "unknown reply type " + strconv.QuoteRune(rune(kind))}
	}
}

func (r *Reader) parseBlob(kind Kind, header []byte, pos int) (any, int, error) {
	n, err := parseInt(header)
	if err != nil {
		return nil, 0, err
	}
	if n == -1 && kind == KindBulkString {
		return nil, pos, nil
	}
	if n < 0 {
		return nil, 0, &ParseError{Message: "negative length"}
	}
	if n > MaxBulkLength {
		return nil, 0, &ParseError{Message: "bulk length exceeds maximum"}
	}

	end := pos + int(n)
	if len(r.buf) < end+2 {
		return nil, 0, ErrIncomplete
	}
	if !bytes.Equal(r.buf[end:end+2], crlfBytes) {
		return nil, 0, &ParseError{Message: "invalid bulk terminator"}
	}
	data := r.buf[pos:end]

	switch kind {
	case KindBlobError:
		return &Error{Kind: KindBlobError, Message: string(data)}, end + 2, nil
	case KindVerbatimString:
		if len(data) < 4 || data[3] != ':' {
			return nil, 0, &ParseError{Message: "invalid verbatim string format"}
		}
		return string(data[4:]), end + 2, nil
	default:
		return string(data), end + 2, nil
	}
}

// openAggregate consumes an aggregate header. Empty aggregates are returned
// whole; others are pushed on the stack to collect their elements.
func (r *Reader) openAggregate(kind Kind, header []byte, next int) (any, bool, error) {
	n, err := parseInt(header)
	if err != nil {
		return nil, false, err
	}
	if n == -1 && kind == KindArray {
		r.consume(next)
		return nil, true, nil
	}
	if n < 0 {
		return nil, false, &ParseError{Message: "negative aggregate length"}
	}
	if n > MaxAggregateLength {
		return nil, false, &ParseError{Message: "aggregate length exceeds maximum"}
	}
	if n == 0 && kind == KindPush {
		return nil, false, &ParseError{Message: "empty push"}
	}
	r.consume(next)

	size := min(int(n), 1024)
	switch {
	case n == 0 && kind == KindMap:
		return map[any]any{}, true, nil
	case n == 0 && kind == KindAttribute:
		return nil, false, nil
	case n == 0:
		return []any{}, true, nil
	case kind == KindMap || kind == KindAttribute:
		r.stack = append(r.stack, &frame{kind: kind, remaining: n, m: make(map[any]any, size)})
	default:
		r.stack = append(r.stack, &frame{kind: kind, remaining: n, elems: make([]any, 0, size)})
	}
	return nil, false, nil
}

// mapKey converts a decoded reply into a comparable map key.
func mapKey(v any) (any, bool) {
	switch k := v.(type) {
	case string, int64, float64, bool, nil, *Error:
		return k, true
	case *big.Int:
		return k.String(), true
	default:
		return nil, false
	}
}

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, &ParseError{Message: "invalid integer", Err: err}
	}
	return n, nil
}
