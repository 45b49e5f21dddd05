package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pior/qedis"
	"github.com/pior/qedis/internal/promexporter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "qedis-bench",
	Short:        "Load generator for a Redis over QUIC server",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: run,
}

func init() {
	cobra.OnInitialize(func() {
		_ = godotenv.Load(".env")
		viper.SetEnvPrefix("qedis_bench")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
	})

	flags := rootCmd.Flags()
	flags.String("operation", "all", "Operation type: "+strings.Join(operationNames(), ", ")+", or all")
	flags.Duration("duration", 5*time.Second, "Duration to run benchmarks")
	flags.Int("concurrency", 1, "Number of concurrent workers")
	flags.String("server", "localhost:6379", "Address of the Redis over QUIC server")
	flags.BoolP("insecure", "k", false, "Skip validation of server certificate")
	flags.Int32("max-streams", 32, "Maximum number of concurrent streams")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	server := viper.GetString("server")
	operation := viper.GetString("operation")
	duration := viper.GetDuration("duration")
	concurrency := viper.GetInt("concurrency")

	fmt.Fprintf(out, "Redis over QUIC Benchmark Tool\n")
	fmt.Fprintf(out, "==============================\n")
	fmt.Fprintf(out, "Operation: %s\n", operation)
	fmt.Fprintf(out, "Duration: %v\n", duration)
	fmt.Fprintf(out, "Concurrency: %d\n", concurrency)
	fmt.Fprintf(out, "Server: %s\n", server)
	fmt.Fprintln(out)

	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{InsecureSkipVerify: viper.GetBool("insecure")}
	config.MaxStreams = viper.GetInt32("max-streams")
	config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	config.NewCircuitBreaker = qedis.NewCircuitBreakerConfig(uint32(concurrency), 10*time.Second, 5*time.Second)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	client, err := qedis.NewClient(ctx, server, config)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	exporter := promexporter.NewExporter()
	if err := exporter.RegisterClient(client); err != nil {
		return err
	}
	if addr := viper.GetString("metrics-addr"); addr != "" {
		go func() {
			if err := exporter.ServeHTTP(addr); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		fmt.Fprintf(out, "Serving metrics on http://%s/metrics\n", addr)
	}

	b := &bench{
		client:      client,
		metrics:     exporter.WorkloadMetrics(),
		duration:    duration,
		concurrency: concurrency,
		out:         out,
	}

	fmt.Fprint(out, "Testing connection...")
	if _, err := qedis.NewCommands(client).Ping(cmd.Context(), ""); err != nil {
		fmt.Fprintf(out, " failed: %v\n", err)
		return err
	}
	fmt.Fprintln(out, " success!")
	fmt.Fprintln(out)

	if operation == "all" {
		for _, name := range operationNames() {
			fmt.Fprintf(out, "\n--- Running %s benchmark ---\n", name)
			b.print(b.run(cmd.Context(), name))
		}
		return nil
	}

	result := b.run(cmd.Context(), operation)
	b.print(result)
	if result.ErrorMessage != "" {
		return fmt.Errorf("%s: %s", operation, result.ErrorMessage)
	}
	return nil
}
