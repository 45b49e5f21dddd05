package main

import (
	"context"
	"log/slog"

	"github.com/pior/qedis"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Runs a sequence of concurrent queries and pipelines",
	Long: WrapString("Runs PING, then concurrent SET and HSET queries on separate streams, "+
		"then concurrent GET and HGETALL, then the same pipeline once with RESP2 and once with RESP3.", 80),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := operationContext(cmd)
		defer cancel()

		conn, closeConn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeConn()

		d := &demo{conn: conn, logger: newLogger()}
		return d.run(ctx)
	},
}

type demo struct {
	conn   *qedis.Conn
	logger *slog.Logger
}

func (d *demo) run(ctx context.Context) error {
	if err := d.query(ctx, qedis.NewCommand("PING", "hello world")); err != nil {
		return err
	}

	err := d.concurrently(ctx,
		qedis.NewCommand("SET", "key", "value"),
		qedis.NewCommand("HSET", "data", "a", "123", "b", "456"),
		qedis.NewCommand("HSET", "data", "c", "789"),
	)
	if err != nil {
		return err
	}

	err = d.concurrently(ctx,
		qedis.NewCommand("GET", "key"),
		qedis.NewCommand("HGETALL", "data"),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, protover := range []int{2, 3} {
		g.Go(func() error {
			return d.pipeline(gctx, demoPipeline(protover))
		})
	}
	return g.Wait()
}

func demoPipeline(protover int) []qedis.Command {
	return []qedis.Command{
		qedis.NewCommand("HELLO", protover),
		qedis.NewCommand("PING"),
		qedis.NewCommand("PING", "hello world"),
		qedis.NewCommand("SET", "k1", "한글"),
		qedis.NewCommand("GET", "k1"),
		qedis.NewCommand("DEL", "k1"),
		qedis.NewCommand("GET", "k1"),
		qedis.NewCommand("HGETALL", "data"),
	}
}

func (d *demo) concurrently(ctx context.Context, cmds ...qedis.Command) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cmd := range cmds {
		g.Go(func() error {
			return d.query(gctx, cmd)
		})
	}
	return g.Wait()
}

func (d *demo) query(ctx context.Context, cmd qedis.Command) error {
	stream, err := d.conn.OpenStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	d.logger.Info("request", "stream_id", stream.ID(), "command", cmd.String())
	reply, err := stream.Query(ctx, cmd)
	if err != nil {
		return err
	}
	d.logger.Info("reply", "stream_id", stream.ID(), "reply", formatReply(reply))
	return nil
}

func (d *demo) pipeline(ctx context.Context, cmds []qedis.Command) error {
	stream, err := d.conn.OpenStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	d.logger.Info("pipeline request", "stream_id", stream.ID(), "commands", len(cmds))
	replies, err := stream.Pipeline(ctx, cmds)
	if err != nil {
		return err
	}
	for i, reply := range replies {
		d.logger.Info("pipeline reply", "stream_id", stream.ID(), "command", cmds[i].String(), "reply", formatReply(reply))
	}
	return nil
}
