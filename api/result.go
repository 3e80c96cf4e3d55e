// Package api
// Author: momentics@gmail.com
//
// Result value used at the port layer boundary: either a value or a native error code.

package api

import (
	"fmt"
	"syscall"
)

// Result wraps either a successful value or a native error code, never both.
// Callers must check Ok before reading Value.
type Result[T any] struct {
	value T
	code  syscall.Errno
	ok    bool
}

// Ok builds a successful result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Fail builds a failed result carrying code.
func Fail[T any](code syscall.Errno) Result[T] {
	return Result[T]{code: code}
}

// Ok reports whether the result holds a value.
func (r Result[T]) Ok() bool { return r.ok }

// Value returns the successful value. It panics on a failed result.
func (r Result[T]) Value() T {
	if !r.ok {
		panic(fmt.Sprintf("api: Value called on failed result (%v)", r.code))
	}
	return r.value
}

// Code returns the native error code, 0 for a successful result.
func (r Result[T]) Code() syscall.Errno { return r.code }

// Err returns the code as an error, nil for a successful result.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	return r.code
}

// Get returns value and ok in one call.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }
