// File: transport/conn.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// io.ReadWriteCloser adapter over a connected stream socket, so that
// stream-oriented libraries can run on top of the port layer.

package transport

import (
	"io"
	"sync"

	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
)

// Conn adapts an api.StreamSocket. One reader, one writer and Close may run
// concurrently.
type Conn struct {
	mu     sync.RWMutex
	sock   api.StreamSocket
	once   sync.Once
	closed bool
}

var _ io.ReadWriteCloser = (*Conn)(nil)

// NewConn takes ownership of a connected socket.
func NewConn(s api.StreamSocket) *Conn {
	return &Conn{sock: s}
}

// Read receives into p. It returns io.EOF once the peer closed or after Close.
func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, io.EOF
	}
	b, err := c.sock.Recv(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return len(b), io.EOF
		}
		return len(b), err
	}
	return len(b), nil
}

// Write sends all of p.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, errors.Wrap(api.ErrClosed, "write")
	}
	written := 0
	for written < len(p) {
		n, err := c.sock.Send(p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Close shuts the socket down, which releases a blocked Read, then frees the handle.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		_ = c.sock.Shutdown()
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		err = c.sock.Close()
	})
	return err
}
