// File: transport/tcp/tcp.go
// Package tcp
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection-oriented IPv4 sockets: a client/accepted Socket and an Acceptor
// that binds and listens on construction.

package tcp

import (
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/assoc"
	"github.com/momentics/hioload-net/socket"
)

// Socket is a TCP stream socket. It is not safe for concurrent use, except
// that Shutdown may be called while another goroutine is blocked in Recv.
type Socket struct {
	*assoc.Stream[addr.Endpoint]
}

var (
	_ api.Socket       = Socket{}
	_ api.StreamSocket = Socket{}
)

// New creates an unbound TCP socket.
func New(opts ...socket.Option) (Socket, error) {
	s, err := assoc.OpenStream("tcp", api.DomainInet4, api.ProtoTCP, addr.EndpointFromSockaddr, opts...)
	if err != nil {
		return Socket{}, err
	}
	return Socket{s}, nil
}

// Dial creates a socket and connects it to ep.
func Dial(ep addr.Endpoint, opts ...socket.Option) (Socket, error) {
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

// IsValid reports whether the socket owns a live handle.
func (s Socket) IsValid() bool { return s.Stream != nil && s.Stream.IsValid() }

// Close releases the socket. Closing twice, or closing the zero Socket, is a no-op.
func (s Socket) Close() error {
	if s.Stream == nil {
		return nil
	}
	return s.Stream.Close()
}

// Acceptor listens for incoming TCP connections.
type Acceptor struct {
	l *assoc.Acceptor[addr.Endpoint]
}

// NewAcceptor binds to ep (port 0 picks an ephemeral port) and listens.
// SO_REUSEADDR is enabled unless socket.WithReuseAddr(false) is given; the
// backlog comes from socket.WithBacklog.
func NewAcceptor(ep addr.Endpoint, opts ...socket.Option) (*Acceptor, error) {
	l, err := assoc.Listen("tcp", api.DomainInet4, api.ProtoTCP, addr.EndpointFromSockaddr, ep, opts...)
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

// LocalEndpoint returns the listening endpoint with the actual port.
func (a *Acceptor) LocalEndpoint() addr.Endpoint { return a.l.LocalEndpoint() }

func (a *Acceptor) IsValid() bool { return a != nil && a.l.IsValid() }

// Close stops listening. Closing twice is a no-op.
func (a *Acceptor) Close() error {
	if a == nil {
		return nil
	}
	return a.l.Close()
}
