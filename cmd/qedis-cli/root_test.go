package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/pior/qedis"
	"github.com/pior/qedis/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	addr := testutils.StartQUICServer(t, testutils.NewRedis(), qedis.DefaultALPN)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(append([]string{"--host", host, "--port", port, "--insecure"}, args...))

	err = RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_Ping(t *testing.T) {
	out, err := runCLI(t, "", "ping", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestCLI_Query(t *testing.T) {
	out, err := runCLI(t, "", "query", "HSET", "data", "a", "1", "b", "2")
	require.NoError(t, err)
	assert.Equal(t, "(integer) 2\n", out)
}

func TestCLI_Pipeline(t *testing.T) {
	stdin := "SET k1 한글\nGET k1\nDEL k1\nGET k1\n"

	out, err := runCLI(t, stdin, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`SET "k1" "한글" -> "OK"`,
		`GET "k1" -> "한글"`,
		`DEL "k1" -> (integer) 1`,
		`GET "k1" -> (nil)`,
	}, "\n")+"\n", out)
}

func TestCLI_Demo(t *testing.T) {
	_, err := runCLI(t, "", "demo")
	require.NoError(t, err)
}

func TestCLI_Repl(t *testing.T) {
	stdin := "SET greeting \"hello world\"\nGET greeting\nNOPE\nstats\nquit\n"

	out, err := runCLI(t, stdin, "repl")
	require.NoError(t, err)

	assert.Contains(t, out, `"OK" (took `)
	assert.Contains(t, out, `"hello world" (took `)
	assert.Contains(t, out, "(error) ERR unknown command 'nope'")
	assert.Contains(t, out, "Client: commands=3")
	assert.Contains(t, out, "Goodbye!")
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
