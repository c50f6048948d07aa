package orchestrator

import (
	"log/slog"
	"time"

	"github.com/dusk-indust/ideaengine/internal/logging"
)

const (
	// DefaultTimeout bounds each individual provider attempt.
	DefaultTimeout = 60 * time.Second

	// DefaultRetries is the number of extra attempts after the first.
	DefaultRetries = 2
)

// Config holds the dispatch policy for one orchestrator.
type Config struct {
	// Timeout bounds a single attempt. A timed-out attempt is retried like
	// any other failure.
	Timeout time.Duration

	// Retries is the number of extra attempts; a provider gets Retries+1
	// attempts in total.
	Retries int

	// Backoff is the delay unit between attempts: the wait before attempt
	// n+1 is n*Backoff. Zero retries immediately.
	Backoff time.Duration

	// OnProgress receives progress events from every provider goroutine.
	// It may be nil.
	OnProgress func(ProgressEvent)

	// Logger receives attempt-level diagnostics. Nil uses the component
	// logger for "orchestrator".
	Logger *slog.Logger
}

// Option adjusts a Config.
type Option func(*Config)

// WithTimeout sets the per-attempt timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithRetries sets the number of extra attempts. Negative values are ignored.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Retries = n
		}
	}
}

// WithBackoff sets the linear backoff unit between attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Backoff = d
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(c *Config) {
		c.OnProgress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() Config {
	return Config{
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
	}
}

// withDefaults fills the fields a zero Config leaves unusable.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries < 0 {
		c.Retries = DefaultRetries
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	if c.Logger == nil {
		c.Logger = logging.New("orchestrator")
	}
	return c
}
