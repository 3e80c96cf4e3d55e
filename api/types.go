// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable socket enumerations, the opaque native handle and the portable sockaddr.
// Native constants never appear outside internal/port.

package api

import "fmt"

// Handle is an opaque native socket handle: a file descriptor on POSIX, a SOCKET on Windows.
type Handle uintptr

// InvalidHandle is the "no socket" sentinel (-1 on POSIX, INVALID_SOCKET on Windows).
const InvalidHandle = ^Handle(0)

// Domain is the address family of a socket.
type Domain int

const (
	DomainUnspec Domain = iota
	DomainInet4
	DomainUnix
)

func (d Domain) String() string {
	switch d {
	case DomainInet4:
		return "inet4"
	case DomainUnix:
		return "unix"
	default:
		return "unspec"
	}
}

// SockType is the transport type of a socket.
type SockType int

const (
	SockStream SockType = iota + 1
	SockDatagram
)

func (t SockType) String() string {
	switch t {
	case SockStream:
		return "stream"
	case SockDatagram:
		return "datagram"
	default:
		return fmt.Sprintf("socktype(%d)", int(t))
	}
}

// Protocol selects the protocol within a domain and type.
type Protocol int

const (
	ProtoDefault Protocol = iota
	ProtoTCP
	ProtoUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	default:
		return "default"
	}
}

// Sockaddr is the portable form of a native socket address.
// IP and Port are used for DomainInet4, Path for DomainUnix.
type Sockaddr struct {
	Domain Domain
	IP     [4]byte
	Port   uint16
	Path   string
}

// String renders "a.b.c.d:port" or the Unix path.
func (sa Sockaddr) String() string {
	switch sa.Domain {
	case DomainInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", sa.IP[0], sa.IP[1], sa.IP[2], sa.IP[3], sa.Port)
	case DomainUnix:
		return sa.Path
	}
	return ""
}

// State enumerates the lifecycle of a transport socket.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateConnected
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
