// File: addr/unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package addr

import (
	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
)

// MaxUnixPath is the longest socket path accepted on every supported platform
// (sun_path is 104 bytes on Darwin, 108 on Linux and Windows).
const MaxUnixPath = 104

// UnixEndpoint is a filesystem path naming a Unix-domain socket.
// A valid endpoint with an empty path denotes an unnamed peer.
type UnixEndpoint struct {
	path  string
	valid bool
}

// NewUnixEndpoint validates path and wraps it.
func NewUnixEndpoint(path string) (UnixEndpoint, error) {
	switch {
	case path == "":
		return UnixEndpoint{}, api.NewAddressError(path, errors.New("empty socket path"))
	case len(path) >= MaxUnixPath:
		return UnixEndpoint{}, api.NewAddressError(path, errors.Errorf("socket path longer than %d bytes", MaxUnixPath-1))
	}
	return UnixEndpoint{path: path, valid: true}, nil
}

// MustUnixEndpoint is NewUnixEndpoint for paths known to be valid; it panics otherwise.
func MustUnixEndpoint(path string) UnixEndpoint {
	ep, err := NewUnixEndpoint(path)
	if err != nil {
		panic(err)
	}
	return ep
}

// UnixEndpointFromSockaddr converts a portable sockaddr; non-Unix input yields the zero value.
func UnixEndpointFromSockaddr(sa api.Sockaddr) UnixEndpoint {
	if sa.Domain != api.DomainUnix {
		return UnixEndpoint{}
	}
	return UnixEndpoint{path: sa.Path, valid: true}
}

// Path returns the filesystem path.
func (e UnixEndpoint) Path() string { return e.path }

// IsValid reports whether e names a socket (possibly an unnamed peer).
func (e UnixEndpoint) IsValid() bool { return e.valid }

// IsUnnamed reports whether e is the address of a peer that never bound.
func (e UnixEndpoint) IsUnnamed() bool { return e.valid && e.path == "" }

// Equal reports whether e and o carry the same fields.
func (e UnixEndpoint) Equal(o UnixEndpoint) bool { return e == o }

// Sockaddr converts e into the portable sockaddr consumed by the port layer.
func (e UnixEndpoint) Sockaddr() api.Sockaddr {
	return api.Sockaddr{Domain: api.DomainUnix, Path: e.path}
}

// String renders the path, "<unnamed>" or "<invalid>".
func (e UnixEndpoint) String() string {
	switch {
	case !e.valid:
		return "<invalid>"
	case e.path == "":
		return "<unnamed>"
	}
	return e.path
}
