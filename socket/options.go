// File: socket/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Configuration surface of a socket: blocking mode, receive and send timeouts,
// plus the listen-side knobs used by acceptors.

package socket

import (
	"time"

	"go.uber.org/zap"
)

// DefaultBacklog is the listen queue length used when none is configured.
const DefaultBacklog = 128

// Config holds construction-time socket settings.
type Config struct {
	Blocking  bool          // start in blocking mode
	RxTimeout time.Duration // SO_RCVTIMEO, zero = disabled
	TxTimeout time.Duration // SO_SNDTIMEO, zero = disabled
	ReuseAddr bool          // SO_REUSEADDR before bind (acceptors)
	Backlog   int           // listen queue length (acceptors)
	Logger    *zap.Logger   // nil = package logger
}

// DefaultConfig returns a blocking socket without timeouts.
func DefaultConfig() Config {
	return Config{
		Blocking:  true,
		ReuseAddr: true,
		Backlog:   DefaultBacklog,
	}
}

// Option customizes Config.
type Option func(*Config)

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBlocking selects the initial blocking mode.
func WithBlocking(on bool) Option {
	return func(c *Config) {
		c.Blocking = on
	}
}

// WithRxTimeout bounds every blocking receive.
func WithRxTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RxTimeout = d
	}
}

// WithTxTimeout bounds every blocking send.
func WithTxTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TxTimeout = d
	}
}

// WithReuseAddr toggles SO_REUSEADDR on listening sockets.
func WithReuseAddr(on bool) Option {
	return func(c *Config) {
		c.ReuseAddr = on
	}
}

// WithBacklog overrides the listen queue length.
func WithBacklog(n int) Option {
	return func(c *Config) {
		c.Backlog = n
	}
}

// WithLogger attaches a logger to a single socket.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}
