package exchange

import (
	"log/slog"
	"time"

	"uartloop/internal/logging"
	"uartloop/metrics"
	"uartloop/serialcomm"
)

// Default timing.
const (
	DefaultWordGap     = 5 * time.Millisecond
	DefaultRoundGap    = 500 * time.Millisecond
	DefaultRxTimeout   = 200 * time.Millisecond
	DefaultSettleDelay = 200 * time.Millisecond
)

// Config holds the session configuration.
type Config struct {
	// WordGap is the pause between consecutive words of a round.
	WordGap time.Duration

	// RoundGap is the pause after each round.
	RoundGap time.Duration

	// RxTimeout bounds the wait for each 14-byte response.
	RxTimeout time.Duration

	// SettleDelay is the pause between opening the port and the first request.
	SettleDelay time.Duration

	// Opener opens the transport. Default is serialcomm.Open.
	Opener serialcomm.Opener

	// Logger receives diagnostic logs (optional)
	Logger *slog.Logger

	// Metrics records exchange metrics (optional)
	Metrics *metrics.Collector

	// OnError is called after a run ends with a transport failure (optional)
	OnError func(error)

	// Now supplies record timestamps. Default is time.Now.
	Now func() time.Time
}

func defaultConfig() Config {
	return Config{
		WordGap:     DefaultWordGap,
		RoundGap:    DefaultRoundGap,
		RxTimeout:   DefaultRxTimeout,
		SettleDelay: DefaultSettleDelay,
		Opener:      serialcomm.Open,
		Logger:      logging.NewNop(),
		Now:         time.Now,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithWordGap sets the pause between consecutive words.
func WithWordGap(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.WordGap = d
		}
	}
}

// WithRoundGap sets the pause after each round.
func WithRoundGap(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.RoundGap = d
		}
	}
}

// WithRxTimeout sets the per-word receive timeout.
func WithRxTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RxTimeout = d
		}
	}
}

// WithSettleDelay sets the pause after opening the port.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.SettleDelay = d
		}
	}
}

// WithOpener replaces the transport opener, e.g. to run over a serialcomm.Pipe.
func WithOpener(opener serialcomm.Opener) Option {
	return func(c *Config) {
		if opener != nil {
			c.Opener = opener
		}
	}
}

// WithLogger sets a logger for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics records exchanges, rounds and failures on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithErrorHandler sets a callback for transport failures.
// It runs on the loop goroutine after the ERROR line has been emitted.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Config) {
		c.OnError = fn
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}
