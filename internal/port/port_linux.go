// File: internal/port/port_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import "golang.org/x/sys/unix"

// sendFlags keeps a write to a reset connection from raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL

func prepare(int) error { return nil }
