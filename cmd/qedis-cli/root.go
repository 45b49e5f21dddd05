package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pior/qedis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.1.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "qedis-cli",
		Short: "Redis over QUIC client",
		Long: fmt.Sprintf(`qedis-cli (v%s)

Runs Redis commands over a QUIC connection, one stream per
concurrent request.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: bindFlags,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of qedis-cli",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qedis-cli v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.String("host", "127.0.0.1", "The remote peer's host name or IP address")
	flags.IntP("port", "p", 6379, "The remote peer's port number (UDP)")
	flags.BoolP("insecure", "k", false, "Skip validation of server certificate")
	flags.BoolP("verbose", "v", false, "Increase logging verbosity from INFO to DEBUG")
	flags.String("alpn", qedis.DefaultALPN, "The application protocol negotiated with the peer")
	flags.Duration("timeout", 10*time.Second, "Timeout of each operation")
	flags.Int32("max-streams", 16, "Maximum number of concurrent streams")
	flags.Duration("keepalive", 10*time.Second, "QUIC keep-alive period (0 disables it)")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(pingCmd)
	RootCmd.AddCommand(queryCmd)
	RootCmd.AddCommand(pipelineCmd)
	RootCmd.AddCommand(demoCmd)
	RootCmd.AddCommand(replCmd)
}

// initConfig loads env files and maps QEDIS_* environment variables
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("qedis")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serverAddr() string {
	return net.JoinHostPort(viper.GetString("host"), strconv.Itoa(viper.GetInt("port")))
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// clientConfig builds the connection configuration from flags and environment.
func clientConfig() qedis.Config {
	config := qedis.DefaultConfig()
	config.TLSConfig = &tls.Config{
		InsecureSkipVerify: viper.GetBool("insecure"),
		NextProtos:         []string{viper.GetString("alpn")},
	}
	config.KeepAlivePeriod = viper.GetDuration("keepalive")
	config.MaxStreams = viper.GetInt32("max-streams")
	config.Logger = newLogger()
	return config
}

func operationContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
}

// connect dials the server and starts the dispatch loop.
// The returned function closes the connection.
func connect(ctx context.Context) (*qedis.Conn, func(), error) {
	conn, err := qedis.Dial(ctx, serverAddr(), clientConfig())
	if err != nil {
		return nil, nil, err
	}

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.Run(runCtx)
	}()

	return conn, func() {
		_ = conn.Close()
		stop()
		<-done
	}, nil
}
