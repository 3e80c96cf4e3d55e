// File: transport/unixsock/unixsock.go
// Package unixsock
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unix-domain stream sockets addressed by filesystem path. Removing a stale
// socket file before binding is left to the caller.

package unixsock

import (
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/assoc"
	"github.com/momentics/hioload-net/socket"
)

// Socket is a Unix-domain stream socket. A peer that never bound a path is
// reported as an unnamed, valid endpoint.
type Socket struct {
	*assoc.Stream[addr.UnixEndpoint]
}

var (
	_ api.Socket       = Socket{}
	_ api.StreamSocket = Socket{}
)

// New creates an unbound Unix-domain stream socket.
func New(opts ...socket.Option) (Socket, error) {
	s, err := assoc.OpenStream("unix", api.DomainUnix, api.ProtoDefault, addr.UnixEndpointFromSockaddr, opts...)
	if err != nil {
		return Socket{}, err
	}
	return Socket{s}, nil
}

// Dial creates a socket and connects it to the listener at ep.
func Dial(ep addr.UnixEndpoint, opts ...socket.Option) (Socket, error) {
	s, err := New(opts...)
	if err != nil {
		return Socket{}, err
	}
	if err := s.Connect(ep); err != nil {
		_ = s.Close()
		return Socket{}, err
	}
	return s, nil
}

func (s Socket) IsValid() bool { return s.Stream != nil && s.Stream.IsValid() }

// Close releases the socket. It does not unlink a bound path.
func (s Socket) Close() error {
	if s.Stream == nil {
		return nil
	}
	return s.Stream.Close()
}

// Acceptor listens on a filesystem path.
type Acceptor struct {
	l *assoc.Acceptor[addr.UnixEndpoint]
}

// NewAcceptor binds to ep and listens with the backlog from socket.WithBacklog.
func NewAcceptor(ep addr.UnixEndpoint, opts ...socket.Option) (*Acceptor, error) {
	l, err := assoc.Listen("unix", api.DomainUnix, api.ProtoDefault, addr.UnixEndpointFromSockaddr, ep, opts...)
	if err != nil {
		return nil, err
	}
	return &Acceptor{l: l}, nil
}

// Accept waits up to timeout for a connection; zero waits forever. When no
// connection arrived in time the returned Socket is invalid and err is nil.
func (a *Acceptor) Accept(timeout time.Duration) (Socket, error) {
	s, err := a.l.Accept(timeout)
	if err != nil {
		return Socket{}, err
	}
	return Socket{s}, nil
}

func (a *Acceptor) LocalEndpoint() addr.UnixEndpoint { return a.l.LocalEndpoint() }

func (a *Acceptor) IsValid() bool { return a != nil && a.l.IsValid() }

// Close stops listening. The socket file stays in place.
func (a *Acceptor) Close() error {
	if a == nil {
		return nil
	}
	return a.l.Close()
}
