// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket abstractions implemented by the transport packages.

package api

import "time"

// Socket is the surface every transport socket shares.
type Socket interface {
	// IsValid reports whether the socket still owns a native handle.
	IsValid() bool

	// State returns the lifecycle state.
	State() State

	// IsBlocking reports the native blocking mode.
	IsBlocking() bool

	// SetBlocking toggles blocking mode and returns the resulting mode.
	SetBlocking(on bool) (bool, error)

	// SetRxTimeout bounds blocking receives; zero disables the timeout.
	SetRxTimeout(d time.Duration) error

	// SetTxTimeout bounds blocking sends; zero disables the timeout.
	SetTxTimeout(d time.Duration) error

	// Close releases the handle. Closing twice is a no-op.
	Close() error
}

// StreamSocket is a connected, connection-oriented socket (TCP or Unix-domain).
type StreamSocket interface {
	// Send writes from p and returns the number of bytes accepted by the kernel.
	Send(p []byte) (int, error)

	// Recv reads into buf and returns the filled prefix; io.EOF once the peer closed.
	Recv(buf []byte) ([]byte, error)

	// GracefulShutdown disables further sends and receives without releasing the handle.
	GracefulShutdown

	// Close releases the handle.
	Close() error
}
