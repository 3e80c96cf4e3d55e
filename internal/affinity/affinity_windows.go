//go:build windows

// File: internal/affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
)

// pinThread relies on SetThreadAffinityMask returning the previous mask.
func pinThread(cpu int) (func(), error) {
	if cpu >= 64 {
		return nil, errors.Errorf("affinity: cpu %d outside the thread's processor group", cpu)
	}
	prev, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), uintptr(1)<<uint(cpu))
	if prev == 0 {
		return nil, errors.Wrapf(err, "affinity: SetThreadAffinityMask cpu %d", cpu)
	}
	return func() {
		_, _, _ = procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), prev)
	}, nil
}
