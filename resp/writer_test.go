package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []any
		expected string
	}{
		{
			name:     "ping",
			args:     []any{"PING"},
			expected: "*1\r\n$4\r\nPING\r\n",
		},
		{
			name:     "set with string value",
			args:     []any{"SET", "k", "v"},
			expected: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n",
		},
		{
			name:     "bytes argument",
			args:     []any{"SET", "k", []byte{0, '\r', '\n'}},
			expected: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$3\r\n\x00\r\n\r\n",
		},
		{
			name:     "integers",
			args:     []any{"HSET", "data", "a", 123, "b", int64(-456), "c", uint8(7)},
			expected: "*8\r\n$4\r\nHSET\r\n$4\r\ndata\r\n$1\r\na\r\n$3\r\n123\r\n$1\r\nb\r\n$4\r\n-456\r\n$1\r\nc\r\n$1\r\n7\r\n",
		},
		{
			name:     "floats",
			args:     []any{"INCRBYFLOAT", "f", 1.5, float32(0.25)},
			expected: "*4\r\n$11\r\nINCRBYFLOAT\r\n$1\r\nf\r\n$3\r\n1.5\r\n$4\r\n0.25\r\n",
		},
		{
			name:     "empty string argument",
			args:     []any{"SET", "k", ""},
			expected: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
		},
		{
			name:     "utf-8 value",
			args:     []any{"SET", "k1", "한글"},
			expected: "*3\r\n$3\r\nSET\r\n$2\r\nk1\r\n$6\r\n한글\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppendCommand(nil, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestAppendCommand_AppendsToDst(t *testing.T) {
	dst := []byte("*1\r\n$4\r\nPING\r\n")
	got, err := AppendCommand(dst, "PING")
	require.NoError(t, err)
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n", string(got))
}

func TestAppendCommand_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := AppendCommand(nil)
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})

	t.Run("unsupported type leaves dst untouched", func(t *testing.T) {
		dst := []byte("prefix")
		got, err := AppendCommand(dst, "SET", "k", struct{}{})

		var argErr *ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, 2, argErr.Index)
		assert.Equal(t, "prefix", string(got))
	})

	t.Run("bool is rejected", func(t *testing.T) {
		_, err := AppendCommand(nil, "SET", "k", true)
		var argErr *ArgumentError
		assert.ErrorAs(t, err, &argErr)
	})
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, "GET", "k"))
	assert.Equal(t, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n", buf.String())

	err := WriteCommand(&buf, "GET", nil)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}
