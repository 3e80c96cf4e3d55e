// File: internal/port/port.go
// Package port
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable socket port layer. Every function maps one-to-one onto a native
// socket call and reports the outcome as api.Result: a value or a native
// error code. Nothing in this package panics or returns a Go error, and the
// api.InvalidHandle sentinel is rejected before any syscall is made.
//
// Implementations are strictly separated by build tags:
//   - port_unix.go    (linux, darwin) on golang.org/x/sys/unix
//   - port_windows.go (Winsock) on golang.org/x/sys/windows
//
// Native constants and handle types never leave this package.

package port

import (
	"time"

	"github.com/momentics/hioload-net/api"
)

// Empty is the value of results that carry no payload.
type Empty = struct{}

// Received is the outcome of RecvFrom.
type Received struct {
	N    int
	From api.Sockaddr // zero value when the kernel reported no source address
}

var done = api.Ok[Empty](Empty{})

// deadline returns the absolute instant d from now, zero for d < 0.
func deadline(d time.Duration) time.Time {
	if d < 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// remainingMillis converts what is left until dl into a poll timeout, -1 for no deadline.
func remainingMillis(dl time.Time) int {
	if dl.IsZero() {
		return -1
	}
	left := time.Until(dl)
	if left <= 0 {
		return 0
	}
	ms := int((left + time.Millisecond - 1) / time.Millisecond)
	return ms
}

// clampTimeval rounds positive sub-microsecond durations up so they never mean "disabled".
func clampTimeval(d time.Duration) time.Duration {
	if d > 0 && d < time.Microsecond {
		return time.Microsecond
	}
	return d
}
