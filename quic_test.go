package qedis_test

import (
	"context"
	"crypto/tls"
	"sync"
	"testing"
	"time"

	"github.com/pior/qedis"
	"github.com/pior/qedis/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T) *qedis.Conn {
	t.Helper()

	addr := testutils.StartQUICServer(t, testutils.NewRedis(), qedis.DefaultALPN)

	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := qedis.Dial(ctx, addr, config)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.Run(runCtx)
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		stop()
		<-done
	})

	return conn
}

func TestQUIC_Query(t *testing.T) {
	conn := dialTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := conn.OpenStream(ctx)
	require.NoError(t, err)

	reply, err := s.Query(ctx, qedis.NewCommand("PING", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	// Same stream, next operation
	reply, err = s.Query(ctx, qedis.NewCommand("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply)
}

func TestQUIC_SetThenGetOnTwoStreams(t *testing.T) {
	conn := dialTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s1, err := conn.OpenStream(ctx)
	require.NoError(t, err)
	s2, err := conn.OpenStream(ctx)
	require.NoError(t, err)
	require.NotEqual(t, s1.ID(), s2.ID())

	reply, err := s1.Query(ctx, qedis.NewCommand("SET", "k", "v"))
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = s2.Query(ctx, qedis.NewCommand("GET", "k"))
	require.NoError(t, err)
	assert.Equal(t, "v", reply)
}

func TestQUIC_PipelineRESP3(t *testing.T) {
	conn := dialTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := conn.OpenStream(ctx)
	require.NoError(t, err)

	_, err = s.Query(ctx, qedis.NewCommand("HELLO", 3))
	require.NoError(t, err)

	replies, err := s.Pipeline(ctx, []qedis.Command{
		qedis.NewCommand("HSET", "h", "a", "1"),
		qedis.NewCommand("HSET", "h", "b", "2"),
		qedis.NewCommand("HGETALL", "h"),
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(1), map[any]any{"a": "1", "b": "2"}}, replies)
}

func TestQUIC_ConcurrentStreams(t *testing.T) {
	conn := dialTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := conn.OpenStream(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer s.Close()
			if _, err := s.Query(ctx, qedis.NewCommand("INCRBY", "counter", i)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := conn.OpenStream(ctx)
	require.NoError(t, err)
	reply, err := s.Query(ctx, qedis.NewCommand("GET", "counter"))
	require.NoError(t, err)
	assert.Equal(t, "45", reply)
}

func TestQUIC_Client(t *testing.T) {
	addr := testutils.StartQUICServer(t, testutils.NewRedis(), qedis.DefaultALPN)

	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := qedis.NewClient(ctx, addr, config)
	require.NoError(t, err)
	defer client.Close()

	cmds := qedis.NewCommands(client)
	require.NoError(t, cmds.Set(ctx, qedis.Item{Key: "k", Value: []byte("v")}))

	item, err := cmds.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), item.Value)
}

func TestQUIC_ClientAfterServerEndsStream(t *testing.T) {
	addr := testutils.StartQUICServer(t, testutils.NewRedis(), qedis.DefaultALPN)

	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := qedis.NewClient(ctx, addr, config)
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.Do(ctx, qedis.NewCommand("QUIT"))
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	require.Eventually(t, func() bool {
		return client.ConnStats().EndedStreams == 1
	}, 2*time.Second, 5*time.Millisecond)

	reply, err = client.Do(ctx, qedis.NewCommand("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply)
	assert.Equal(t, uint64(2), client.PoolStats().CreatedStreams)
}

func TestQUIC_DialFailure(t *testing.T) {
	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"not-redis"}}

	addr := testutils.StartQUICServer(t, testutils.NewRedis(), qedis.DefaultALPN)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := qedis.Dial(ctx, addr, config)
	require.Error(t, err)
}
