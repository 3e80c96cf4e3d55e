// File: addr/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package addr

import (
	"strings"

	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
)

// Endpoint is an IPv4 address and port pair used by UDP and TCP sockets.
// The zero value is invalid. Equality compares every field, so two zero
// values are equal and a zero value never equals a valid endpoint.
type Endpoint struct {
	addr  V4
	port  Port
	valid bool
}

// NewEndpoint builds a valid endpoint.
func NewEndpoint(a V4, p Port) Endpoint {
	return Endpoint{addr: a, port: p, valid: true}
}

// ParseEndpoint parses "a.b.c.d:port".
func ParseEndpoint(s string) (Endpoint, error) {
	host, rawPort, found := strings.Cut(s, ":")
	if !found {
		return Endpoint{}, api.NewAddressError(s, errors.New("missing ':' port separator"))
	}
	a, err := parseV4(host)
	if err != nil {
		return Endpoint{}, api.NewAddressError(s, err)
	}
	p, err := parsePort(rawPort)
	if err != nil {
		return Endpoint{}, &api.AddressError{Input: s, Port: rawPort, Err: err}
	}
	return NewEndpoint(a, p), nil
}

// MustParseEndpoint is ParseEndpoint for literals known to be valid; it panics otherwise.
func MustParseEndpoint(s string) Endpoint {
	ep, err := ParseEndpoint(s)
	if err != nil {
		panic(err)
	}
	return ep
}

// EndpointFromSockaddr converts a portable sockaddr; non-IPv4 input yields the zero Endpoint.
func EndpointFromSockaddr(sa api.Sockaddr) Endpoint {
	if sa.Domain != api.DomainInet4 {
		return Endpoint{}
	}
	return NewEndpoint(V4From4(sa.IP[0], sa.IP[1], sa.IP[2], sa.IP[3]), Port(sa.Port))
}

// Addr returns the address part.
func (e Endpoint) Addr() V4 { return e.addr }

// Port returns the port part.
func (e Endpoint) Port() Port { return e.port }

// IsValid reports whether e was built from components or parsed successfully.
func (e Endpoint) IsValid() bool { return e.valid }

// Equal reports whether e and o carry the same fields.
func (e Endpoint) Equal(o Endpoint) bool { return e == o }

// WithPort returns a copy of e using port p.
func (e Endpoint) WithPort(p Port) Endpoint { return NewEndpoint(e.addr, p) }

// Sockaddr converts e into the portable sockaddr consumed by the port layer.
func (e Endpoint) Sockaddr() api.Sockaddr {
	return api.Sockaddr{Domain: api.DomainInet4, IP: e.addr.Octets(), Port: uint16(e.port)}
}

// String renders "a.b.c.d:port", or "<invalid>" for the zero value.
func (e Endpoint) String() string {
	if !e.valid {
		return "<invalid>"
	}
	return e.addr.String() + ":" + e.port.String()
}
