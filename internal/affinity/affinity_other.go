//go:build !linux && !windows

// File: internal/affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

func pinThread(int) (func(), error) { return nil, ErrUnsupported }
