package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pior/qedis"
	"github.com/spf13/cobra"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping [message]",
		Short: "Sends PING and prints the reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := operationContext(cmd)
			defer cancel()

			client, err := qedis.NewClient(ctx, serverAddr(), clientConfig())
			if err != nil {
				return err
			}
			defer client.Close()

			message := ""
			if len(args) == 1 {
				message = args[0]
			}
			reply, err := qedis.NewCommands(client).Ping(ctx, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [command] [args...]",
		Short: "Runs a single command on a new stream",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := operationContext(cmd)
			defer cancel()

			conn, closeConn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer closeConn()

			stream, err := conn.OpenStream(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			reply, err := stream.Query(ctx, toCommand(args))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReply(reply))
			return nil
		},
	}
	pipelineCmd = &cobra.Command{
		Use:   "pipeline",
		Short: "Runs the commands read from stdin, one per line, as one pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds, err := readCommands(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, cancel := operationContext(cmd)
			defer cancel()

			conn, closeConn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer closeConn()

			stream, err := conn.OpenStream(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			replies, err := stream.Pipeline(ctx, cmds)
			if err != nil {
				return err
			}
			for i, reply := range replies {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", cmds[i], formatReply(reply))
			}
			return nil
		},
	}
)

func toCommand(fields []string) qedis.Command {
	args := make([]any, len(fields)-1)
	for i, f := range fields[1:] {
		args[i] = f
	}
	return qedis.NewCommand(fields[0], args...)
}

// readCommands parses one command per line. Blank lines and lines starting with # are skipped.
func readCommands(r io.Reader) ([]qedis.Command, error) {
	var cmds []qedis.Command
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := splitArgs(line)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, toCommand(fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		return nil, qedis.ErrEmptyPipeline
	}
	return cmds, nil
}

// splitArgs splits a command line on spaces, honoring double quotes.
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuotes, hasArg := false, false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && inQuotes && i+1 < len(line):
			i++
			current.WriteByte(line[i])
		case c == '"':
			inQuotes = !inQuotes
			hasArg = true
		case (c == ' ' || c == '\t') && !inQuotes:
			if hasArg {
				args = append(args, current.String())
				current.Reset()
				hasArg = false
			}
		default:
			current.WriteByte(c)
			hasArg = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unbalanced quotes in %q", line)
	}
	if hasArg {
		args = append(args, current.String())
	}
	return args, nil
}
