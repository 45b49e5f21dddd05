package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pior/qedis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Starts an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := operationContext(cmd)
		client, err := qedis.NewClient(ctx, serverAddr(), clientConfig())
		cancel()
		if err != nil {
			return err
		}
		defer client.Close()

		repl(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		return nil
	},
}

func repl(ctx context.Context, client *qedis.Client, in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "Connected to %s\n", client.Addr())
	fmt.Fprintln(out, "Type a Redis command, \"stats\", \"help\" or \"quit\".")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return
		case "help":
			printHelp(out)
		case "stats":
			printStats(out, client)
		default:
			execute(ctx, client, out, toCommand(fields))
		}
	}
}

func execute(ctx context.Context, client *qedis.Client, out io.Writer, cmd qedis.Command) {
	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("timeout"))
	defer cancel()

	start := time.Now()
	reply, err := client.Do(ctx, cmd)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "(error) %v (took %v)\n", err, duration)
		return
	}
	fmt.Fprintf(out, "%s (took %v)\n", formatReply(reply), duration)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Any Redis command runs on its own stream, for example:")
	fmt.Fprintln(out, "  SET key value")
	fmt.Fprintln(out, "  GET key")
	fmt.Fprintln(out, "  HSET data a 123 b 456")
	fmt.Fprintln(out, "Arguments with spaces can be double-quoted.")
	fmt.Fprintln(out, "  stats - print client, connection and pool statistics")
	fmt.Fprintln(out, "  quit  - exit")
}

func printStats(out io.Writer, client *qedis.Client) {
	cs := client.Stats()
	fmt.Fprintf(out, "Client: commands=%d pipelines=%d errors=%d server_errors=%d\n",
		cs.Commands, cs.Pipelines, cs.Errors, cs.ServerErrors)

	conn := client.ConnStats()
	fmt.Fprintf(out, "Connection: queries=%d pipelines=%d replies=%d resets=%d protocol_errors=%d in_flight=%d\n",
		conn.Queries, conn.Pipelines, conn.Replies, conn.Resets, conn.ProtocolErrors, conn.InFlight)

	pool := client.PoolStats()
	fmt.Fprintf(out, "Pool: total=%d idle=%d active=%d created=%d destroyed=%d\n",
		pool.TotalStreams, pool.IdleStreams, pool.ActiveStreams, pool.CreatedStreams, pool.DestroyedStreams)

	if state, counts, ok := client.BreakerStats(); ok {
		fmt.Fprintf(out, "Circuit breaker: state=%s requests=%d failures=%d\n",
			state, counts.Requests, counts.TotalFailures)
	}
}
