package qedis

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultALPN is the application protocol negotiated during the TLS handshake.
const DefaultALPN = "redis"

// Config holds the connection and client settings.
type Config struct {
	// TLSConfig is used for the QUIC handshake.
	// If nil, a config with NextProtos set to DefaultALPN is used.
	// NextProtos defaults to DefaultALPN when empty.
	TLSConfig *tls.Config

	// KeepAlivePeriod is the QUIC keep-alive interval.
	// Zero disables keep-alives.
	KeepAlivePeriod time.Duration

	// HandshakeTimeout bounds the QUIC handshake.
	// Zero uses the quic-go default.
	HandshakeTimeout time.Duration

	// MaxIdleTimeout closes the connection after this long without network activity.
	// Zero uses the quic-go default.
	MaxIdleTimeout time.Duration

	// Logger receives lifecycle and diagnostic events.
	// If nil, logs are discarded.
	Logger SLogger

	// MaxStreams is the maximum number of streams held by the Client pool,
	// which bounds the number of concurrent operations.
	// Required by NewClient: must be > 0.
	MaxStreams int32

	// NewCircuitBreaker creates the circuit breaker wrapping Client operations.
	// Called once with the server address.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[any]

	// Dialer opens the transport.
	// If nil, DialQUIC is used.
	Dialer func(ctx context.Context, addr string, config Config) (Transport, error)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		KeepAlivePeriod:  10 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		MaxIdleTimeout:   30 * time.Second,
		MaxStreams:       16,
	}
}

func (c Config) logger() SLogger {
	if c.Logger == nil {
		return DefaultSLogger()
	}
	return c.Logger
}

func (c Config) tlsConfig() *tls.Config {
	var conf *tls.Config
	if c.TLSConfig != nil {
		conf = c.TLSConfig.Clone()
	} else {
		conf = &tls.Config{}
	}
	if len(conf.NextProtos) == 0 {
		conf.NextProtos = []string{DefaultALPN}
	}
	return conf
}
