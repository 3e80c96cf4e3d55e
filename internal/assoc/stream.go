// File: internal/assoc/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package assoc

import (
	"io"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/socket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Stream is the connection-oriented socket surface shared by TCP and
// Unix-domain sockets. Transport packages embed it behind their own type.
type Stream[E Endpoint] struct {
	a *Assoc[E]
}

// OpenStream creates an unbound stream socket.
func OpenStream[E Endpoint](name string, d api.Domain, p api.Protocol, decode func(api.Sockaddr) E, opts ...socket.Option) (*Stream[E], error) {
	a, err := Open(name, d, api.SockStream, p, decode, opts...)
	if err != nil {
		return nil, err
	}
	return &Stream[E]{a: a}, nil
}

// Bind fixes the local endpoint before Connect.
func (s *Stream[E]) Bind(ep E) error { return s.a.Bind(ep) }

// TryBind is Bind reporting failure as false.
func (s *Stream[E]) TryBind(ep E) bool { return s.a.Bind(ep) == nil }

// Connect blocks until the handshake with ep completes or fails.
func (s *Stream[E]) Connect(ep E) error { return s.a.Connect(ep) }

// TryConnect is Connect reporting failure as false.
func (s *Stream[E]) TryConnect(ep E) bool { return s.a.Connect(ep) == nil }

// Send writes from p and returns the number of bytes the kernel accepted,
// which may be fewer than len(p).
func (s *Stream[E]) Send(p []byte) (int, error) {
	if err := s.a.RequireConnected("send"); err != nil {
		return 0, err
	}
	return s.a.Raw().Send(p)
}

// TrySend is Send reporting failure as false.
func (s *Stream[E]) TrySend(p []byte) (int, bool) {
	if s.a.RequireConnected("send") != nil {
		return 0, false
	}
	return s.a.Raw().TrySend(p)
}

// SendAll writes the whole of p, looping over short sends.
func (s *Stream[E]) SendAll(p []byte) error {
	for len(p) > 0 {
		n, err := s.Send(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Recv reads into buf and returns the filled prefix. A zero-byte read into
// a non-empty buf means the peer closed its side and is reported as io.EOF.
func (s *Stream[E]) Recv(buf []byte) ([]byte, error) {
	if err := s.a.RequireConnected("recv"); err != nil {
		return nil, err
	}
	b, err := s.a.Raw().Recv(buf)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 && len(buf) > 0 {
		return b, io.EOF
	}
	return b, nil
}

// TryRecv is Recv reporting timeout and failure as false. End of stream is
// (empty, true).
func (s *Stream[E]) TryRecv(buf []byte) ([]byte, bool) {
	if s.a.RequireConnected("recv") != nil {
		return nil, false
	}
	return s.a.Raw().TryRecv(buf)
}

// Shutdown stops both directions. A Recv blocked in another goroutine returns.
func (s *Stream[E]) Shutdown() error {
	if err := s.a.RequireConnected("shutdown"); err != nil {
		return err
	}
	return s.a.Raw().Shutdown()
}

// LocalEndpoint returns the local endpoint, invalid until bound or connected.
func (s *Stream[E]) LocalEndpoint() E { return s.a.Local() }

// RemoteEndpoint returns the peer, invalid until connected or accepted.
func (s *Stream[E]) RemoteEndpoint() E { return s.a.Remote() }

func (s *Stream[E]) State() api.State { return s.a.State() }

func (s *Stream[E]) IsValid() bool { return s != nil && s.a.Raw().IsValid() }

func (s *Stream[E]) IsBlocking() bool { return s.a.Raw().IsBlocking() }

func (s *Stream[E]) SetBlocking(on bool) (bool, error) { return s.a.Raw().SetBlocking(on) }

func (s *Stream[E]) SetRxTimeout(d time.Duration) error { return s.a.Raw().SetRxTimeout(d) }

func (s *Stream[E]) SetTxTimeout(d time.Duration) error { return s.a.Raw().SetTxTimeout(d) }

// Close releases the socket. Closing twice is a no-op.
func (s *Stream[E]) Close() error {
	if s == nil {
		return nil
	}
	return s.a.Close()
}

// Acceptor is a bound, listening stream socket.
type Acceptor[E Endpoint] struct {
	a *Assoc[E]
}

// Listen opens a stream socket, binds it to ep and starts listening with the
// configured backlog. SO_REUSEADDR is set first unless disabled.
func Listen[E Endpoint](name string, d api.Domain, p api.Protocol, decode func(api.Sockaddr) E, ep E, opts ...socket.Option) (*Acceptor[E], error) {
	cfg := socket.NewConfig(opts...)
	a, err := Open(name, d, api.SockStream, p, decode, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.ReuseAddr && d != api.DomainUnix {
		if err := a.Raw().SetReuseAddr(true); err != nil {
			_ = a.Close()
			return nil, errors.Wrapf(err, "%s acceptor %s", name, ep)
		}
	}
	if err := a.Bind(ep); err != nil {
		_ = a.Close()
		return nil, err
	}
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = socket.DefaultBacklog
	}
	if err := a.Listen(backlog); err != nil {
		_ = a.Close()
		return nil, err
	}
	return &Acceptor[E]{a: a}, nil
}

// Accept waits up to timeout for one connection; zero waits forever.
// When the timeout expires the returned socket is invalid and err is nil.
func (l *Acceptor[E]) Accept(timeout time.Duration) (*Stream[E], error) {
	c, err := l.a.Accept(timeout)
	if err != nil {
		if errors.Is(err, api.ErrTimeout) {
			return l.invalid(), nil
		}
		return nil, err
	}
	return &Stream[E]{a: c}, nil
}

// invalid is the socket handed out when no connection arrived in time.
func (l *Acceptor[E]) invalid() *Stream[E] {
	a := Wrap(l.a.name, &socket.Raw{}, l.a.decode)
	a.state = api.StateClosed
	return &Stream[E]{a: a}
}

// LocalEndpoint returns the endpoint the acceptor listens on.
func (l *Acceptor[E]) LocalEndpoint() E { return l.a.Local() }

func (l *Acceptor[E]) IsValid() bool { return l != nil && l.a.Raw().IsValid() }

// Close stops listening. Closing twice is a no-op.
func (l *Acceptor[E]) Close() error {
	if l == nil {
		return nil
	}
	l.a.log().Debug("acceptor closed", zap.String("proto", l.a.name), zap.Stringer("endpoint", l.a.Local()))
	return l.a.Close()
}
