package qedis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRequest_ResolveOnce(t *testing.T) {
	p := newSingleRequest(0)

	assert.True(t, p.resolve("first", nil))
	assert.False(t, p.resolve(nil, errors.New("second")))

	<-p.done
	v, err := p.result()
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestPendingRequest_Single(t *testing.T) {
	p := newSingleRequest(0)
	assert.Equal(t, 1, p.expected)

	assert.True(t, p.accept("PONG"))
	assert.Equal(t, "PONG", p.completion())
}

func TestPendingRequest_Batch(t *testing.T) {
	p := newBatchRequest(0, 3)
	assert.Equal(t, 3, p.expected)

	assert.False(t, p.accept("OK"))
	assert.False(t, p.accept(int64(1)))
	assert.True(t, p.accept(nil))

	assert.Equal(t, []any{"OK", int64(1), nil}, p.completion())
}

func TestPendingRequest_PrivateParser(t *testing.T) {
	a := newSingleRequest(0)
	b := newSingleRequest(4)
	assert.NotSame(t, a.parser, b.parser)
}
