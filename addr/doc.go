// File: addr/doc.go
// Package addr
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Immutable value types for IPv4 addresses, port numbers and endpoints, with
// parsing from and rendering to canonical text. Only numeric dotted-quad text
// is understood: there is no hostname resolution and no IPv6.
//
// Malformed input is reported as *api.AddressError carrying the offending
// string, so callers can match it with errors.Is(err, api.ErrInvalidAddress).

package addr
