package main

import (
	"strings"
	"testing"

	"github.com/pior/qedis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs(`SET  key "hello world"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "key", "hello world"}, args)

	args, err = splitArgs(`SET k ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "k", ""}, args)

	args, err = splitArgs(`ECHO "say \"hi\""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ECHO", `say "hi"`}, args)

	_, err = splitArgs(`GET "key`)
	require.Error(t, err)
}

func TestReadCommands(t *testing.T) {
	input := "# setup\nSET k1 v1\n\n  GET k1  \n"

	cmds, err := readCommands(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, `SET "k1" "v1"`, cmds[0].String())
	assert.Equal(t, `GET "k1"`, cmds[1].String())
}

func TestReadCommands_Empty(t *testing.T) {
	_, err := readCommands(strings.NewReader("\n# nothing\n"))
	require.ErrorIs(t, err, qedis.ErrEmptyPipeline)
}

func TestWrapString(t *testing.T) {
	assert.Equal(t, "one two\nthree", WrapString("one two three", 8))
	assert.Equal(t, "", WrapString("", 8))
}
