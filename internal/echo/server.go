// File: internal/echo/server.go
// Package echo
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-threaded round-robin TCP echo service. One goroutine owns the
// acceptor and a FIFO of connected sockets; every pass accepts at most one
// connection and gives each queued socket one receive bounded by its
// receive timeout. Timeouts are routine and only requeue the socket.

package echo

import (
	"context"
	"io"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/affinity"
	"github.com/momentics/hioload-net/socket"
	"github.com/momentics/hioload-net/transport/tcp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Server echoes every byte it receives back to the sender.
type Server struct {
	cfg   Config
	acc   *tcp.Acceptor
	conns *queue.Queue
	buf   []byte
	log   *zap.Logger
	delay time.Duration
}

const maxAcceptDelay = time.Second

// New binds and listens on ep.
func New(ep addr.Endpoint, opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BufferSize <= 0 {
		return nil, errors.Wrapf(api.ErrInvalidArgument, "echo: buffer size %d", cfg.BufferSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = socket.Logger()
	}
	acc, err := tcp.NewAcceptor(ep, socket.WithBacklog(cfg.Backlog), socket.WithLogger(cfg.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "echo: listen")
	}
	return &Server{
		cfg:   cfg,
		acc:   acc,
		conns: queue.New(),
		buf:   make([]byte, cfg.BufferSize),
		log:   cfg.Logger.Named("echo"),
	}, nil
}

// Endpoint returns the listening endpoint.
func (s *Server) Endpoint() addr.Endpoint { return s.acc.LocalEndpoint() }

// Active returns the number of queued connections. Only meaningful from the
// Serve goroutine or after Serve returned.
func (s *Server) Active() int { return s.conns.Length() }

// Serve runs the loop until ctx is cancelled or the acceptor is closed.
// Other accept failures (descriptor exhaustion, aborted handshakes) are logged
// and retried with backoff while queued clients keep being served.
// Cancellation is not an error. Queued connections are closed on return.
func (s *Server) Serve(ctx context.Context) error {
	if s.cfg.CPU >= 0 {
		unpin, err := affinity.Pin(s.cfg.CPU)
		if err != nil {
			s.log.Warn("cpu pinning unavailable", zap.Int("cpu", s.cfg.CPU), zap.Error(err))
		} else {
			defer unpin()
		}
	}
	defer s.drain()
	s.log.Info("serving", zap.Stringer("endpoint", s.Endpoint()))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped", zap.Stringer("endpoint", s.Endpoint()))
			return nil
		default:
		}
		if err := s.acceptOne(ctx); err != nil {
			return err
		}
		for n := s.conns.Length(); n > 0; n-- {
			c := s.conns.Remove().(tcp.Socket)
			if s.echoOnce(c) {
				s.conns.Add(c)
			} else {
				_ = c.Close()
			}
		}
	}
}

func (s *Server) acceptOne(ctx context.Context) error {
	timeout := s.cfg.AcceptTimeout
	if s.conns.Length() > 0 {
		timeout = time.Millisecond
	}
	c, err := s.acc.Accept(timeout)
	if err != nil {
		if s.acceptFatal(err) {
			return errors.Wrap(err, "echo: accept")
		}
		s.backoff()
		s.log.Warn("accept failed, retrying", zap.Duration("delay", s.delay), zap.Error(err))
		if s.conns.Length() == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.delay):
			}
		}
		return nil
	}
	s.delay = 0
	if !c.IsValid() {
		return nil
	}
	if err := c.SetRxTimeout(s.cfg.RecvTimeout); err != nil {
		s.log.Warn("set receive timeout", zap.Error(err))
		_ = c.Close()
		return nil
	}
	s.log.Debug("client connected", zap.Stringer("peer", c.RemoteEndpoint()))
	s.conns.Add(c)
	return nil
}

// acceptFatal reports whether err means the acceptor itself is gone.
func (s *Server) acceptFatal(err error) bool {
	return errors.Is(err, api.ErrClosed) || errors.Is(err, syscall.EBADF) || !s.acc.IsValid()
}

// backoff doubles the retry delay between failed accepts, from 5ms up to
// maxAcceptDelay.
func (s *Server) backoff() {
	if s.delay == 0 {
		s.delay = 5 * time.Millisecond
	} else {
		s.delay *= 2
	}
	if s.delay > maxAcceptDelay {
		s.delay = maxAcceptDelay
	}
}

// echoOnce reports whether c should stay queued.
func (s *Server) echoOnce(c tcp.Socket) bool {
	b, err := c.Recv(s.buf)
	switch {
	case err == nil:
	case errors.Is(err, api.ErrTimeout):
		return true
	case errors.Is(err, io.EOF):
		s.log.Debug("client disconnected", zap.Stringer("peer", c.RemoteEndpoint()))
		return false
	default:
		s.log.Warn("receive failed", zap.Stringer("peer", c.RemoteEndpoint()), zap.Error(err))
		return false
	}
	if err := c.SendAll(b); err != nil {
		s.log.Warn("send failed", zap.Stringer("peer", c.RemoteEndpoint()), zap.Error(err))
		return false
	}
	return true
}

func (s *Server) drain() {
	for s.conns.Length() > 0 {
		_ = s.conns.Remove().(tcp.Socket).Close()
	}
}

// Close stops listening. Call it after Serve returned.
func (s *Server) Close() error {
	s.drain()
	return s.acc.Close()
}
