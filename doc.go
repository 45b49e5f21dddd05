// Package qedis is a Redis client running the RESP protocol over QUIC streams.
//
// A single QUIC connection carries many independent streams. Each stream holds
// at most one operation at a time, either a single command (Stream.Query) or a
// pipeline (Stream.Pipeline), and replies on a stream arrive in send order.
// Concurrent operations use separate streams, so a slow reply never blocks
// another stream.
//
// # Low-level API
//
//	conn, err := qedis.Dial(ctx, "localhost:6380", qedis.DefaultConfig())
//	go conn.Run(ctx)
//
//	stream, err := conn.OpenStream(ctx)
//	reply, err := stream.Query(ctx, qedis.NewCommand("PING", "hello"))
//
// Error replies from the server (such as "-ERR unknown command") are returned
// as *resp.Error values by Query and Pipeline. A stream reset by the peer fails
// the operation with a *StreamResetError.
//
// # Client
//
// Client pools streams, optionally wraps operations with a circuit breaker and
// turns error replies into Go errors:
//
//	client, err := qedis.NewClient(ctx, "localhost:6380", qedis.DefaultConfig())
//	defer client.Close()
//
//	cmds := qedis.NewCommands(client)
//	err = cmds.Set(ctx, qedis.Item{Key: "k", Value: []byte("v")})
//	item, err := cmds.Get(ctx, "k")
package qedis
