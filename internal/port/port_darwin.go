// File: internal/port/port_darwin.go
//go:build darwin
// +build darwin

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import "golang.org/x/sys/unix"

// MSG_NOSIGNAL is not honoured by every supported Darwin release; SO_NOSIGPIPE is set per socket instead.
const sendFlags = 0

func prepare(s int) error {
	return unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
