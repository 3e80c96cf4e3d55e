//go:build linux

// File: internal/affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// pinThread sets the affinity of the calling thread (pid 0).
func pinThread(cpu int) (func(), error) {
	var prev, set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, errors.Wrap(err, "affinity: sched_getaffinity")
	}
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, errors.Wrapf(err, "affinity: sched_setaffinity cpu %d", cpu)
	}
	return func() { _ = unix.SchedSetaffinity(0, &prev) }, nil
}
