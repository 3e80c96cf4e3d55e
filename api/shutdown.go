// File: api/shutdown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops traffic on a resource without releasing it, so that
// goroutines blocked on it return before Close frees the handle.
type GracefulShutdown interface {
	Shutdown() error
}
