// File: internal/affinity/affinity.go
// Package affinity
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pins the calling goroutine's OS thread to one logical CPU. Platform code
// lives in affinity_linux.go, affinity_windows.go and affinity_other.go.

package affinity

import (
	"runtime"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned where thread affinity cannot be set.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// Pin locks the goroutine to its OS thread and restricts that thread to cpu.
// The returned func restores the previous affinity where the platform allows
// and unlocks the thread; it must be called from the same goroutine.
func Pin(cpu int) (func(), error) {
	if cpu < 0 {
		return nil, errors.Errorf("affinity: negative cpu %d", cpu)
	}
	runtime.LockOSThread()
	restore, err := pinThread(cpu)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		restore()
		runtime.UnlockOSThread()
	}, nil
}
