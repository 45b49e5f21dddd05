package resp

import (
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOne(t *testing.T, input string) any {
	t.Helper()
	r := NewReader()
	r.Feed([]byte(input))
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Buffered(), "reply should consume all input")
	return v
}

func TestReader_RESP2(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"simple string", "+OK\r\n", "OK"},
		{"integer", ":1\r\n", int64(1)},
		{"negative integer", ":-42\r\n", int64(-42)},
		{"bulk string", "$5\r\nhello\r\n", "hello"},
		{"empty bulk string", "$0\r\n\r\n", ""},
		{"binary bulk string", "$4\r\na\r\nb\r\n", "a\r\nb"},
		{"null bulk string", "$-1\r\n", nil},
		{"null array", "*-1\r\n", nil},
		{"empty array", "*0\r\n", []any{}},
		{"array", "*2\r\n$3\r\nfoo\r\n:7\r\n", []any{"foo", int64(7)}},
		{"nested array", "*2\r\n*1\r\n+a\r\n*0\r\n", []any{[]any{"a"}, []any{}}},
		{"array with null", "*2\r\n$-1\r\n+x\r\n", []any{nil, "x"}},
		{
			"flattened hgetall",
			"*4\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n",
			[]any{"a", "1", "b", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, readOne(t, tt.input))
		})
	}
}

func TestReader_RESP3(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"null", "_\r\n", nil},
		{"double", ",3.25\r\n", 3.25},
		{"double inf", ",inf\r\n", math.Inf(1)},
		{"double negative inf", ",-inf\r\n", math.Inf(-1)},
		{"true", "#t\r\n", true},
		{"false", "#f\r\n", false},
		{"verbatim", "=15\r\ntxt:Some string\r\n", "Some string"},
		{"set", "~2\r\n+a\r\n+b\r\n", []any{"a", "b"}},
		{
			"map",
			"%2\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n",
			map[any]any{"a": "1", "b": "2"},
		},
		{
			"map with integer keys",
			"%1\r\n:1\r\n+one\r\n",
			map[any]any{int64(1): "one"},
		},
		{
			"hello reply",
			"%2\r\n$6\r\nserver\r\n$5\r\nredis\r\n$5\r\nproto\r\n:3\r\n",
			map[any]any{"server": "redis", "proto": int64(3)},
		},
		{
			"attribute is skipped",
			"|1\r\n+key-popularity\r\n%1\r\n$1\r\na\r\n,0.19\r\n*1\r\n:2\r\n",
			[]any{int64(2)},
		},
		{
			"push",
			">3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$2\r\nhi\r\n",
			&Push{Kind: "message", Data: []any{"ch", "hi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, readOne(t, tt.input))
		})
	}
}

func TestReader_DoubleNaN(t *testing.T) {
	v := readOne(t, ",nan\r\n")
	f, ok := v.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestReader_BigNumber(t *testing.T) {
	v := readOne(t, "(3492890328409238509324850943850943825024385\r\n")
	expected, _ := new(big.Int).SetString("3492890328409238509324850943850943825024385", 10)
	assert.Equal(t, 0, expected.Cmp(v.(*big.Int)))
}

func TestReader_ErrorReplies(t *testing.T) {
	v := readOne(t, "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n")
	e, ok := v.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, "WRONGTYPE", e.Code())
	assert.Equal(t, "WRONGTYPE Operation against a key holding the wrong kind of value", e.Error())

	v = readOne(t, "!21\r\nSYNTAX invalid syntax\r\n")
	e, ok = v.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindBlobError, e.Kind)
	assert.Equal(t, "SYNTAX", e.Code())

	assert.Equal(t, "", (&Error{Message: "lowercase message"}).Code())
}

func TestReader_Incomplete(t *testing.T) {
	input := "*3\r\n:1\r\n$5\r\nhello\r\n%1\r\n+k\r\n+v\r\n"

	// Every strict prefix is incomplete and consumes nothing
	for i := 1; i < len(input); i++ {
		r := NewReader()
		r.Feed([]byte(input[:i]))
		_, err := r.Next()
		require.ErrorIs(t, err, ErrIncomplete, "prefix %q", input[:i])
		assert.Equal(t, i, r.Buffered())
	}
}

func TestReader_ByteAtATime(t *testing.T) {
	input := "+OK\r\n$5\r\nhello\r\n*2\r\n:1\r\n:2\r\n"
	r := NewReader()

	var replies []any
	for i := range len(input) {
		r.Feed([]byte{input[i]})
		for {
			v, err := r.Next()
			if err == ErrIncomplete {
				break
			}
			require.NoError(t, err)
			replies = append(replies, v)
		}
	}

	assert.Equal(t, []any{"OK", "hello", []any{int64(1), int64(2)}}, replies)
	assert.False(t, r.HasData())
}

func TestReader_MultipleRepliesInOneChunk(t *testing.T) {
	r := NewReader()
	r.Feed([]byte(":1\r\n:1\r\n+OK\r\n$1\r\n"))

	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "OK", v)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.True(t, r.HasData())

	r.Feed([]byte("x\r\n"))
	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestReader_EmptyIsIncomplete(t *testing.T) {
	r := NewReader()
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.False(t, r.HasData())
}

func TestReader_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown type", "?foo\r\n"},
		{"missing CR", "+OK\n"},
		{"empty line", "\r\n"},
		{"invalid integer", ":abc\r\n"},
		{"invalid bulk length", "$x\r\n"},
		{"negative bulk length", "$-2\r\n"},
		{"bad bulk terminator", "$3\r\nfooXX"},
		{"invalid boolean", "#x\r\n"},
		{"invalid null", "_x\r\n"},
		{"invalid double", ",1.2.3\r\n"},
		{"invalid big number", "(12a\r\n"},
		{"invalid verbatim", "=3\r\ntxt\r\n"},
		{"null map", "%-1\r\n"},
		{"null set", "~-1\r\n"},
		{"aggregate map key", "%1\r\n*0\r\n+v\r\n"},
		{"empty push", ">0\r\n"},
		{"huge aggregate", "*99999999999\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader()
			r.Feed([]byte(tt.input))
			_, err := r.Next()

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)

			// Sticky
			r.Feed([]byte("+OK\r\n"))
			_, err2 := r.Next()
			assert.Equal(t, err, err2)
			assert.Equal(t, err, r.Err())
		})
	}
}

func TestReader_TooDeep(t *testing.T) {
	r := NewReader()
	for range MaxDepth + 2 {
		r.Feed([]byte("*1\r\n"))
	}
	r.Feed([]byte(":1\r\n"))

	_, err := r.Next()
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestReader_Reset(t *testing.T) {
	r := NewReader()
	r.Feed([]byte("?\r\n"))
	_, err := r.Next()
	require.Error(t, err)

	r.Reset()
	assert.NoError(t, r.Err())
	r.Feed([]byte("+OK\r\n"))
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "OK", v)
}

func TestReader_RoundTripCommand(t *testing.T) {
	// A command is an array of bulk strings, so the reader decodes it too
	b, err := AppendCommand(nil, "HSET", "h", "a", 1)
	require.NoError(t, err)

	r := NewReader()
	r.Feed(b)
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []any{"HSET", "h", "a", "1"}, v)
}

// feedChunks feeds input in chunks of size n and returns the decoded replies.
func feedChunks(t *testing.T, r *Reader, input string, n int) []any {
	t.Helper()

	var replies []any
	for i := 0; i < len(input); i += n {
		r.Feed([]byte(input[i:min(i+n, len(input))]))
		for {
			v, err := r.Next()
			if err == ErrIncomplete {
				break
			}
			require.NoError(t, err)
			replies = append(replies, v)
		}
	}
	return replies
}

func TestReader_ResumesNestedAggregates(t *testing.T) {
	input := "%2\r\n+list\r\n*3\r\n:1\r\n$5\r\nhello\r\n~1\r\n#t\r\n" +
		"+attr\r\n|1\r\n+ttl\r\n:3\r\n>2\r\n+message\r\n$2\r\nhi\r\n" +
		"*0\r\n"
	expected := []any{
		map[any]any{
			"list": []any{int64(1), "hello", []any{true}},
			"attr": &Push{Kind: "message", Data: []any{"hi"}},
		},
		[]any{},
	}

	for n := 1; n <= len(input); n++ {
		r := NewReader()
		assert.Equal(t, expected, feedChunks(t, r, input, n), "chunk size %d", n)
		assert.Zero(t, r.Buffered(), "chunk size %d", n)
	}
}

func TestReader_BufferedCountsPartialReply(t *testing.T) {
	r := NewReader()
	r.Feed([]byte("*2\r\n:1\r\n:"))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 9, r.Buffered())

	r.Feed([]byte("2\r\n+OK\r\n"))
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)
	assert.Equal(t, 5, r.Buffered())
}

func TestReader_ResetDiscardsPartialReply(t *testing.T) {
	r := NewReader()
	r.Feed([]byte("*2\r\n:1\r\n"))
	_, err := r.Next()
	require.ErrorIs(t, err, ErrIncomplete)

	r.Reset()
	assert.False(t, r.HasData())

	r.Feed([]byte("+OK\r\n"))
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "OK", v)
}

func TestReader_LargeArrayInSmallChunks(t *testing.T) {
	const count = 200_000

	var sb strings.Builder
	sb.WriteString("*200000\r\n")
	for range count {
		sb.WriteString("$5\r\nvalue\r\n")
	}
	input := sb.String()

	start := time.Now()
	replies := feedChunks(t, NewReader(), input, 1400)
	elapsed := time.Since(start)

	require.Len(t, replies, 1)
	elems, ok := replies[0].([]any)
	require.True(t, ok)
	assert.Len(t, elems, count)
	assert.Equal(t, "value", elems[count-1])

	// Re-scanning the buffered elements on every chunk takes tens of seconds here
	assert.Less(t, elapsed, 2*time.Second)
}
