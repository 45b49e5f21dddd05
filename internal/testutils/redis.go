package testutils

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pior/qedis"
	"github.com/pior/qedis/resp"
)

// Redis is a minimal in-memory Redis answering strings and hashes commands.
// Each stream is a separate session with its own protocol version, the way
// a proxy opens one backend connection per stream.
type Redis struct {
	mu       sync.Mutex
	strings  map[string]string
	hashes   map[string]map[string]string
	sessions map[qedis.StreamID]*session
}

type session struct {
	reader *resp.Reader
	proto  int
}

func newSession() *session {
	return &session{reader: resp.NewReader(), proto: 2}
}

type status string

// ErrQuit is returned by Handle after a QUIT command. The server then ends
// the stream gracefully.
var ErrQuit = errors.New("testutils: client quit")

func NewRedis() *Redis {
	return &Redis{
		strings:  make(map[string]string),
		hashes:   make(map[string]map[string]string),
		sessions: make(map[qedis.StreamID]*session),
	}
}

// Attach answers every flush on t with DataArrived events.
func (r *Redis) Attach(t *TransportMock) {
	t.OnFlush = func(id qedis.StreamID, data []byte) {
		out, err := r.Handle(id, data)
		if len(out) > 0 {
			t.Emit(qedis.DataArrived{StreamID: id, Data: out})
		}
		switch {
		case errors.Is(err, ErrQuit):
			t.Emit(qedis.StreamFinished{StreamID: id})
		case err != nil:
			t.Emit(qedis.StreamReset{StreamID: id, ErrorCode: 1})
		}
	}
}

// Handle consumes request bytes received on a stream and returns the encoded replies.
// Incomplete commands are kept until the rest arrives.
func (r *Redis) Handle(id qedis.StreamID, data []byte) ([]byte, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = newSession()
		r.sessions[id] = s
	}
	r.mu.Unlock()

	return r.handle(s, data)
}

// ServeStream answers the commands read from rw until EOF or QUIT.
func (r *Redis) ServeStream(rw io.ReadWriter) error {
	s := newSession()
	buf := make([]byte, 4096)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			out, herr := r.handle(s, buf[:n])
			if len(out) > 0 {
				if _, werr := rw.Write(out); werr != nil {
					return werr
				}
			}
			if errors.Is(herr, ErrQuit) {
				return nil
			}
			if herr != nil {
				return herr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *Redis) handle(s *session, data []byte) ([]byte, error) {
	s.reader.Feed(data)

	var out []byte
	for {
		v, err := s.reader.Next()
		if errors.Is(err, resp.ErrIncomplete) {
			return out, nil
		}
		if err != nil {
			return out, err
		}

		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			return out, fmt.Errorf("testutils: invalid command %v", v)
		}
		args := make([]string, len(items))
		for i, item := range items {
			args[i] = fmt.Sprint(item)
		}

		out = appendReply(out, r.exec(s, args), s.proto)
		if strings.EqualFold(args[0], "QUIT") {
			return out, ErrQuit
		}
	}
}

func (r *Redis) exec(s *session, args []string) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToUpper(args[0])
	args = args[1:]

	switch name {
	case "PING":
		if len(args) > 0 {
			return args[0]
		}
		return status("PONG")

	case "QUIT":
		return status("OK")

	case "ECHO":
		if len(args) != 1 {
			return wrongArity(name)
		}
		return args[0]

	case "HELLO":
		if len(args) > 0 {
			proto, err := strconv.Atoi(args[0])
			if err != nil || (proto != 2 && proto != 3) {
				return &resp.Error{Kind: resp.KindError, Message: "NOPROTO unsupported protocol version"}
			}
			s.proto = proto
		}
		return map[string]any{
			"server":  "redis",
			"version": "7.2.0",
			"proto":   int64(s.proto),
		}

	case "GET":
		if len(args) != 1 {
			return wrongArity(name)
		}
		if _, ok := r.hashes[args[0]]; ok {
			return wrongType()
		}
		v, ok := r.strings[args[0]]
		if !ok {
			return nil
		}
		return v

	case "SET":
		if len(args) < 2 {
			return wrongArity(name)
		}
		delete(r.hashes, args[0])
		r.strings[args[0]] = args[1]
		return status("OK")

	case "DEL":
		if len(args) == 0 {
			return wrongArity(name)
		}
		var n int64
		for _, key := range args {
			_, isString := r.strings[key]
			_, isHash := r.hashes[key]
			if isString || isHash {
				n++
			}
			delete(r.strings, key)
			delete(r.hashes, key)
		}
		return n

	case "INCR", "INCRBY":
		delta := int64(1)
		if name == "INCRBY" {
			if len(args) != 2 {
				return wrongArity(name)
			}
			d, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return notInteger()
			}
			delta = d
		} else if len(args) != 1 {
			return wrongArity(name)
		}
		current := int64(0)
		if v, ok := r.strings[args[0]]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return notInteger()
			}
			current = n
		}
		current += delta
		r.strings[args[0]] = strconv.FormatInt(current, 10)
		return current

	case "HSET":
		if len(args) < 3 || len(args)%2 != 1 {
			return wrongArity(name)
		}
		if _, ok := r.strings[args[0]]; ok {
			return wrongType()
		}
		h, ok := r.hashes[args[0]]
		if !ok {
			h = make(map[string]string)
			r.hashes[args[0]] = h
		}
		var added int64
		for i := 1; i < len(args); i += 2 {
			if _, exists := h[args[i]]; !exists {
				added++
			}
			h[args[i]] = args[i+1]
		}
		return added

	case "HGETALL":
		if len(args) != 1 {
			return wrongArity(name)
		}
		if _, ok := r.strings[args[0]]; ok {
			return wrongType()
		}
		fields := make(map[string]any, len(r.hashes[args[0]]))
		for k, v := range r.hashes[args[0]] {
			fields[k] = v
		}
		return fields

	default:
		return &resp.Error{Kind: resp.KindError, Message: fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(name))}
	}
}

func wrongArity(name string) *resp.Error {
	return &resp.Error{Kind: resp.KindError, Message: fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))}
}

func wrongType() *resp.Error {
	return &resp.Error{Kind: resp.KindError, Message: "WRONGTYPE Operation against a key holding the wrong kind of value"}
}

func notInteger() *resp.Error {
	return &resp.Error{Kind: resp.KindError, Message: "ERR value is not an integer or out of range"}
}

// appendReply encodes a reply in RESP2 or RESP3.
func appendReply(dst []byte, v any, proto int) []byte {
	switch v := v.(type) {
	case nil:
		if proto == 3 {
			return append(dst, "_\r\n"...)
		}
		return append(dst, "$-1\r\n"...)
	case status:
		return append(append(append(dst, '+'), v...), "\r\n"...)
	case *resp.Error:
		return append(append(append(dst, '-'), v.Message...), "\r\n"...)
	case int64:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v, 10)
		return append(dst, "\r\n"...)
	case string:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v)), 10)
		dst = append(dst, "\r\n"...)
		dst = append(dst, v...)
		return append(dst, "\r\n"...)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if proto == 3 {
			dst = append(dst, '%')
			dst = strconv.AppendInt(dst, int64(len(v)), 10)
		} else {
			dst = append(dst, '*')
			dst = strconv.AppendInt(dst, int64(2*len(v)), 10)
		}
		dst = append(dst, "\r\n"...)
		for _, k := range keys {
			dst = appendReply(dst, k, proto)
			dst = appendReply(dst, v[k], proto)
		}
		return dst
	default:
		panic(fmt.Sprintf("testutils: cannot encode %T", v))
	}
}
