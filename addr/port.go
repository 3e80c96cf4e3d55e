// File: addr/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package addr

import (
	"strconv"

	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
)

// Port is a transport port number in host byte order.
type Port uint16

// ParsePort parses a decimal port in [0,65535].
func ParsePort(s string) (Port, error) {
	p, err := parsePort(s)
	if err != nil {
		return 0, &api.AddressError{Input: s, Port: s, Err: err}
	}
	return p, nil
}

func parsePort(s string) (Port, error) {
	if !isDigits(s) {
		return 0, errors.Errorf("port %q is not a decimal number", s)
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Errorf("port %q out of range [0,65535]", s)
	}
	return Port(n), nil
}

// Uint16 returns the numeric value.
func (p Port) Uint16() uint16 { return uint16(p) }

// String renders the decimal form.
func (p Port) String() string { return strconv.FormatUint(uint64(p), 10) }
