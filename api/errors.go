// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the endpoint parsers and the transport sockets.

package api

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Common errors used across the library. Typed errors below match them via errors.Is.
var (
	ErrInvalidAddress   = errors.New("invalid address string")
	ErrNetwork          = errors.New("network error")
	ErrTimeout          = errors.New("operation timed out")
	ErrAlreadyBound     = errors.New("socket already bound")
	ErrAlreadyConnected = errors.New("socket already connected")
	ErrNotConnected     = errors.New("socket not connected")
	ErrInvalidState     = errors.New("operation not valid in current socket state")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrClosed           = errors.New("socket is closed")
)

// AddressError reports a malformed address, port or endpoint string.
type AddressError struct {
	Input string // the offending text as given by the caller
	Port  string // offending port substring, empty when the port was not the problem
	Err   error  // underlying cause, may be nil
}

// NewAddressError builds an AddressError for input with an optional cause.
func NewAddressError(input string, cause error) *AddressError {
	return &AddressError{Input: input, Err: cause}
}

// Error implements the error interface.
func (e *AddressError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrInvalidAddress.Error())
	fmt.Fprintf(&sb, " %q", e.Input)
	if e.Port != "" {
		fmt.Fprintf(&sb, " (port %q)", e.Port)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is makes every AddressError match ErrInvalidAddress.
func (e *AddressError) Is(target error) bool { return target == ErrInvalidAddress }

// Unwrap returns the underlying cause.
func (e *AddressError) Unwrap() error { return e.Err }

// Cause satisfies the github.com/pkg/errors causer interface.
func (e *AddressError) Cause() error { return e.Err }

// NetworkError is the generic failure of a socket operation.
type NetworkError struct {
	Op       string        // "bind", "connect", "recv", ...
	Endpoint string        // rendered endpoint involved, if any
	Code     syscall.Errno // native error code, 0 when the failure is not a syscall failure
	Msg      string        // extra description, used when Code is 0
	Timeout  bool          // the code denotes an expired timeout or would-block condition
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Endpoint != "" {
		sb.WriteByte(' ')
		sb.WriteString(e.Endpoint)
	}
	sb.WriteString(": ")
	switch {
	case e.Msg != "" && e.Code != 0:
		fmt.Fprintf(&sb, "%s: %s", e.Msg, e.Code.Error())
	case e.Msg != "":
		sb.WriteString(e.Msg)
	case e.Code != 0:
		sb.WriteString(e.Code.Error())
	default:
		sb.WriteString(ErrNetwork.Error())
	}
	return sb.String()
}

// Is matches ErrNetwork always and ErrTimeout for timed-out operations.
func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrTimeout:
		return e.Timeout
	}
	return false
}

// Unwrap exposes the native code so errors.Is(err, syscall.ECONNREFUSED) works.
func (e *NetworkError) Unwrap() error {
	if e.Code == 0 {
		return nil
	}
	return e.Code
}

// Temporary reports whether retrying the same call may succeed.
func (e *NetworkError) Temporary() bool { return e.Timeout }

// IsTimeout reports whether err is a timed-out or would-block socket failure.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsAddressError reports whether err carries a malformed address string and returns it.
func IsAddressError(err error) (*AddressError, bool) {
	var ae *AddressError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
