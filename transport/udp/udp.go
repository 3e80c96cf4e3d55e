// File: transport/udp/udp.go
// Package udp
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connectionless IPv4 datagram socket. A socket may be bound to a local
// endpoint and optionally connected to a default peer; both associations are
// fixed once made.

package udp

import (
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/assoc"
	"github.com/momentics/hioload-net/socket"
)

// Socket is a UDP socket. It is not safe for concurrent use.
type Socket struct {
	a *assoc.Assoc[addr.Endpoint]
}

var _ api.Socket = (*Socket)(nil)

// New creates an unbound UDP socket.
func New(opts ...socket.Option) (*Socket, error) {
	a, err := assoc.Open("udp", api.DomainInet4, api.SockDatagram, api.ProtoUDP, addr.EndpointFromSockaddr, opts...)
	if err != nil {
		return nil, err
	}
	return &Socket{a: a}, nil
}

// Bind fixes the local endpoint. Binding again to the same endpoint is a no-op;
// a different endpoint fails with api.ErrAlreadyBound.
func (s *Socket) Bind(ep addr.Endpoint) error { return s.a.Bind(ep) }

// TryBind is Bind reporting failure as false.
func (s *Socket) TryBind(ep addr.Endpoint) bool { return s.a.Bind(ep) == nil }

// Connect fixes the default peer used by Send and Recv and filters incoming
// datagrams to that peer.
func (s *Socket) Connect(ep addr.Endpoint) error { return s.a.Connect(ep) }

// TryConnect is Connect reporting failure as false.
func (s *Socket) TryConnect(ep addr.Endpoint) bool { return s.a.Connect(ep) == nil }

// Send transmits one datagram to the connected peer.
func (s *Socket) Send(p []byte) (int, error) {
	if err := s.a.RequireConnected("send"); err != nil {
		return 0, err
	}
	return s.a.Raw().Send(p)
}

// TrySend is Send reporting failure as false.
func (s *Socket) TrySend(p []byte) (int, bool) {
	if s.a.RequireConnected("send") != nil {
		return 0, false
	}
	return s.a.Raw().TrySend(p)
}

// Recv reads one datagram from the connected peer into buf and returns the
// filled prefix. Bytes beyond len(buf) are discarded by the kernel.
func (s *Socket) Recv(buf []byte) ([]byte, error) {
	if err := s.a.RequireConnected("recv"); err != nil {
		return nil, err
	}
	return s.a.Raw().Recv(buf)
}

// TryRecv is Recv reporting timeout and failure as false.
func (s *Socket) TryRecv(buf []byte) ([]byte, bool) {
	if s.a.RequireConnected("recv") != nil {
		return nil, false
	}
	return s.a.Raw().TryRecv(buf)
}

// SendTo transmits one datagram to ep. An unbound socket is bound to an
// ephemeral port by the kernel and moves to Bound. LocalEndpoint then reports
// the wildcard address 0.0.0.0 with that port, while the peer sees the routed
// source address; the ports match. Bind with the reported endpoint is a no-op
// afterwards and any other endpoint fails with api.ErrAlreadyBound.
//
// Sending to an endpoint other than the connected peer is passed through to
// the operating system: Linux and Windows deliver it, Darwin fails with EISCONN.
func (s *Socket) SendTo(p []byte, ep addr.Endpoint) (int, error) {
	if err := s.a.RequireOpen("sendto"); err != nil {
		return 0, err
	}
	n, err := s.a.Raw().SendTo(p, ep.Sockaddr())
	if err == nil {
		s.a.NoteAutobind()
	}
	return n, err
}

// TrySendTo is SendTo reporting failure as false.
func (s *Socket) TrySendTo(p []byte, ep addr.Endpoint) (int, bool) {
	if s.a.RequireOpen("sendto") != nil {
		return 0, false
	}
	n, ok := s.a.Raw().TrySendTo(p, ep.Sockaddr())
	if ok {
		s.a.NoteAutobind()
	}
	return n, ok
}

// RecvFrom reads one datagram into buf and reports its sender.
func (s *Socket) RecvFrom(buf []byte) ([]byte, addr.Endpoint, error) {
	if err := s.a.RequireOpen("recvfrom"); err != nil {
		return nil, addr.Endpoint{}, err
	}
	b, from, err := s.a.Raw().RecvFrom(buf)
	if err != nil {
		return nil, addr.Endpoint{}, err
	}
	return b, s.a.Decode(from), nil
}

// TryRecvFrom is RecvFrom reporting timeout and failure as false.
func (s *Socket) TryRecvFrom(buf []byte) ([]byte, addr.Endpoint, bool) {
	if s.a.RequireOpen("recvfrom") != nil {
		return nil, addr.Endpoint{}, false
	}
	b, from, ok := s.a.Raw().TryRecvFrom(buf)
	if !ok {
		return nil, addr.Endpoint{}, false
	}
	return b, s.a.Decode(from), true
}

// LocalEndpoint returns the bound endpoint, invalid while unbound.
func (s *Socket) LocalEndpoint() addr.Endpoint { return s.a.Local() }

// RemoteEndpoint returns the connected peer, invalid while unconnected.
func (s *Socket) RemoteEndpoint() addr.Endpoint { return s.a.Remote() }

// State returns the lifecycle state.
func (s *Socket) State() api.State { return s.a.State() }

// IsValid reports whether the socket still owns a handle.
func (s *Socket) IsValid() bool { return s != nil && s.a.Raw().IsValid() }

func (s *Socket) IsBlocking() bool { return s.a.Raw().IsBlocking() }

func (s *Socket) SetBlocking(on bool) (bool, error) { return s.a.Raw().SetBlocking(on) }

func (s *Socket) SetRxTimeout(d time.Duration) error { return s.a.Raw().SetRxTimeout(d) }

func (s *Socket) SetTxTimeout(d time.Duration) error { return s.a.Raw().SetTxTimeout(d) }

// Close releases the socket. Closing twice is a no-op.
func (s *Socket) Close() error { return s.a.Close() }
