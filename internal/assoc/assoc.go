// File: internal/assoc/assoc.go
// Package assoc
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bind/connect/listen/accept state machine shared by the UDP, TCP and
// Unix-domain sockets:
//
//	Unbound -> Bound -> {Connected | Listening} -> Closed
//
// Local and remote endpoints are cached when an association is made and never
// change afterwards. Binding or connecting again to a different endpoint is
// rejected; repeating the call with the same endpoint succeeds without a syscall.

package assoc

import (
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/socket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Endpoint is satisfied by addr.Endpoint and addr.UnixEndpoint.
type Endpoint interface {
	comparable
	IsValid() bool
	String() string
	Sockaddr() api.Sockaddr
}

// Assoc couples one socket.Raw with its cached endpoints and lifecycle state.
type Assoc[E Endpoint] struct {
	raw       *socket.Raw
	name      string
	decode    func(api.Sockaddr) E
	local     E
	requested E
	remote    E
	state     api.State
}

// Open creates the socket and wraps it.
func Open[E Endpoint](name string, d api.Domain, t api.SockType, p api.Protocol, decode func(api.Sockaddr) E, opts ...socket.Option) (*Assoc[E], error) {
	raw, err := socket.New(d, t, p, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s socket", name)
	}
	return Wrap(name, raw, decode), nil
}

// Wrap takes ownership of raw in the Unbound state.
func Wrap[E Endpoint](name string, raw *socket.Raw, decode func(api.Sockaddr) E) *Assoc[E] {
	return &Assoc[E]{raw: raw, name: name, decode: decode, state: api.StateUnbound}
}

// Raw exposes the owned socket for option and I/O calls.
func (a *Assoc[E]) Raw() *socket.Raw { return a.raw }

// State returns the lifecycle state.
func (a *Assoc[E]) State() api.State { return a.state }

// Local returns the cached local endpoint, invalid until bound or connected.
func (a *Assoc[E]) Local() E { return a.local }

// Remote returns the cached peer endpoint, invalid until connected or accepted.
func (a *Assoc[E]) Remote() E { return a.remote }

// Decode converts a native source address reported by a receive.
func (a *Assoc[E]) Decode(sa api.Sockaddr) E { return a.decode(sa) }

func (a *Assoc[E]) log() *zap.Logger { return a.raw.Logger() }

// Bind fixes the local endpoint.
func (a *Assoc[E]) Bind(ep E) error {
	if !ep.IsValid() {
		return errors.Wrapf(api.ErrInvalidArgument, "%s bind: invalid endpoint", a.name)
	}
	switch a.state {
	case api.StateClosed:
		return errors.Wrapf(api.ErrClosed, "%s bind %s", a.name, ep)
	case api.StateUnbound:
	default:
		if ep == a.local || ep == a.requested {
			return nil
		}
		return errors.Wrapf(api.ErrAlreadyBound, "%s bind %s: bound to %s", a.name, ep, a.local)
	}
	if err := a.raw.Bind(ep.Sockaddr()); err != nil {
		return errors.Wrapf(err, "%s", a.name)
	}
	a.requested = ep
	a.local = a.lookupLocal(ep)
	a.state = api.StateBound
	a.log().Debug("socket bound", zap.String("proto", a.name), zap.Stringer("endpoint", a.local))
	return nil
}

// Connect performs the handshake (stream) or fixes the default peer (datagram).
func (a *Assoc[E]) Connect(ep E) error {
	if !ep.IsValid() {
		return errors.Wrapf(api.ErrInvalidArgument, "%s connect: invalid endpoint", a.name)
	}
	switch a.state {
	case api.StateClosed:
		return errors.Wrapf(api.ErrClosed, "%s connect %s", a.name, ep)
	case api.StateListening:
		return errors.Wrapf(api.ErrInvalidState, "%s connect %s: socket is listening", a.name, ep)
	case api.StateConnected:
		if ep == a.remote {
			return nil
		}
		return errors.Wrapf(api.ErrAlreadyConnected, "%s connect %s: connected to %s", a.name, ep, a.remote)
	}
	if err := a.raw.Connect(ep.Sockaddr()); err != nil {
		return errors.Wrapf(err, "%s", a.name)
	}
	a.remote = ep
	a.state = api.StateConnected
	if !a.local.IsValid() {
		a.local = a.lookupLocal(a.local)
	}
	a.log().Debug("socket connected",
		zap.String("proto", a.name),
		zap.Stringer("local", a.local),
		zap.Stringer("remote", a.remote))
	return nil
}

// Listen turns a bound stream socket into an acceptor.
func (a *Assoc[E]) Listen(backlog int) error {
	switch a.state {
	case api.StateListening:
		return nil
	case api.StateBound:
	case api.StateClosed:
		return errors.Wrapf(api.ErrClosed, "%s listen", a.name)
	default:
		return errors.Wrapf(api.ErrInvalidState, "%s listen: socket is %s", a.name, a.state)
	}
	if err := a.raw.Listen(backlog); err != nil {
		return errors.Wrapf(err, "%s %s", a.name, a.local)
	}
	a.state = api.StateListening
	a.log().Debug("socket listening", zap.String("proto", a.name), zap.Stringer("endpoint", a.local))
	return nil
}

// Accept waits up to timeout (zero = forever) for one connection.
// An expired timeout is returned as an error matching api.ErrTimeout.
func (a *Assoc[E]) Accept(timeout time.Duration) (*Assoc[E], error) {
	switch a.state {
	case api.StateListening:
	case api.StateClosed:
		return nil, errors.Wrapf(api.ErrClosed, "%s accept", a.name)
	default:
		return nil, errors.Wrapf(api.ErrInvalidState, "%s accept: socket is %s", a.name, a.state)
	}
	raw, err := a.raw.Accept(timeout)
	if err != nil {
		return nil, err
	}
	c := Wrap(a.name, raw, a.decode)
	c.state = api.StateConnected
	c.local = c.lookupLocal(a.local)
	if sa, err := raw.PeerAddr(); err == nil {
		c.remote = a.decode(sa)
	} else if raw.Domain() == api.DomainUnix {
		c.remote = a.decode(api.Sockaddr{Domain: api.DomainUnix})
	} else {
		c.log().Warn("peer address unavailable", zap.String("proto", a.name), zap.Error(err))
	}
	c.log().Debug("connection accepted",
		zap.String("proto", a.name),
		zap.Stringer("local", c.local),
		zap.Stringer("remote", c.remote))
	return c, nil
}

// RequireConnected guards operations that need a default peer.
func (a *Assoc[E]) RequireConnected(op string) error {
	switch a.state {
	case api.StateConnected:
		return nil
	case api.StateClosed:
		return errors.Wrapf(api.ErrClosed, "%s %s", a.name, op)
	}
	return errors.Wrapf(api.ErrNotConnected, "%s %s", a.name, op)
}

// RequireOpen guards operations that only need a live handle.
func (a *Assoc[E]) RequireOpen(op string) error {
	if a.state == api.StateClosed || !a.raw.IsValid() {
		return errors.Wrapf(api.ErrClosed, "%s %s", a.name, op)
	}
	return nil
}

// NoteAutobind moves an unbound socket to Bound after its first send and
// records the endpoint the kernel picked. For IPv4 that is the wildcard
// address with the ephemeral port; peers see the routed source address.
func (a *Assoc[E]) NoteAutobind() {
	if a.state != api.StateUnbound {
		return
	}
	var zero E
	a.local = a.lookupLocal(zero)
	a.state = api.StateBound
	a.log().Debug("socket autobound", zap.String("proto", a.name), zap.Stringer("endpoint", a.local))
}

// Close releases the socket and moves to Closed. Closing twice is a no-op.
func (a *Assoc[E]) Close() error {
	if a.state == api.StateClosed {
		return nil
	}
	a.state = api.StateClosed
	return a.raw.Close()
}

// lookupLocal asks the kernel for the bound address, falling back to fallback.
func (a *Assoc[E]) lookupLocal(fallback E) E {
	sa, err := a.raw.LocalAddr()
	if err != nil {
		return fallback
	}
	ep := a.decode(sa)
	if !ep.IsValid() {
		return fallback
	}
	return ep
}
