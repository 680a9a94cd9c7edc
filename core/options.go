package core

import (
	"time"

	"github.com/dnstools/requestq/history"
	"github.com/dnstools/requestq/item"
)

// Config holds engine configuration
type Config struct {
	HistoryLimit   int
	Persister      history.Persister
	Persist        bool
	MaxRetries     int
	EmptyWait      time.Duration
	StopTimeout    time.Duration
	RetrySlack     time.Duration
	CallbackBuffer int
	Notifiers      []Notifier
	Registry       OperationSource
}

// EngineOption is a function that modifies engine configuration
type EngineOption func(*Config)

// defaultConfig returns default configuration
func defaultConfig() *Config {
	return &Config{
		HistoryLimit:   history.DefaultLimit,
		MaxRetries:     item.DefaultMaxRetries,
		EmptyWait:      3 * time.Second,
		StopTimeout:    5 * time.Second,
		RetrySlack:     time.Second,
		CallbackBuffer: 64,
	}
}

// WithHistoryLimit sets the history retention bound (item count).
func WithHistoryLimit(n int) EngineOption {
	return func(c *Config) {
		c.HistoryLimit = n
	}
}

// WithPersister sets the durable history backend and enables
// persistence.
func WithPersister(p history.Persister) EngineOption {
	return func(c *Config) {
		c.Persister = p
		c.Persist = p != nil
	}
}

// WithMaxRetries sets the default automatic rate-limit retry budget for
// items that do not carry their own.
func WithMaxRetries(n int) EngineOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithEmptyWait sets how long the worker naps when the queue is empty
// before re-checking. New enqueues wake it earlier.
func WithEmptyWait(d time.Duration) EngineOption {
	return func(c *Config) {
		c.EmptyWait = d
	}
}

// WithStopTimeout sets the graceful shutdown timeout
func WithStopTimeout(d time.Duration) EngineOption {
	return func(c *Config) {
		c.StopTimeout = d
	}
}

// WithRetrySlack sets the fixed buffer added on top of the
// server-suggested wait before a rate-limited item is retried.
func WithRetrySlack(d time.Duration) EngineOption {
	return func(c *Config) {
		c.RetrySlack = d
	}
}

// WithNotifier attaches an observer. May be given multiple times;
// events fan out to all attached notifiers in registration order.
func WithNotifier(n Notifier) EngineOption {
	return func(c *Config) {
		if n != nil {
			c.Notifiers = append(c.Notifiers, n)
		}
	}
}

// WithRegistry attaches an operation registry. Items reloaded from a
// persisted history carry no operation closure; a registry lets Retry
// rebind them by action name.
func WithRegistry(r OperationSource) EngineOption {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithCallbackBuffer sets the callback inbox capacity
func WithCallbackBuffer(size int) EngineOption {
	return func(c *Config) {
		c.CallbackBuffer = size
	}
}
