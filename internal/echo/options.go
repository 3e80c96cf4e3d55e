// File: internal/echo/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package echo

import (
	"time"

	"go.uber.org/zap"
)

// Config controls the echo loop.
type Config struct {
	AcceptTimeout time.Duration // idle wait for new connections
	RecvTimeout   time.Duration // per-connection receive slice
	BufferSize    int           // bytes read per receive
	Backlog       int           // listen queue length
	CPU           int           // pin the serving thread, -1 = no pinning
	Logger        *zap.Logger
}

// DefaultConfig returns the settings used by New when no options are given.
func DefaultConfig() Config {
	return Config{
		AcceptTimeout: 50 * time.Millisecond,
		RecvTimeout:   time.Millisecond,
		BufferSize:    4096,
		Backlog:       128,
		CPU:           -1,
	}
}

// Option customizes Config.
type Option func(*Config)

func WithAcceptTimeout(d time.Duration) Option {
	return func(c *Config) { c.AcceptTimeout = d }
}

func WithRecvTimeout(d time.Duration) Option {
	return func(c *Config) { c.RecvTimeout = d }
}

func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

func WithBacklog(n int) Option {
	return func(c *Config) { c.Backlog = n }
}

// WithCPU pins the goroutine running Serve to one logical CPU.
func WithCPU(cpu int) Option {
	return func(c *Config) { c.CPU = cpu }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
