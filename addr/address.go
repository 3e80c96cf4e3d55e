// File: addr/address.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package addr

import (
	"strconv"
	"strings"

	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
)

// V4 is an IPv4 address in host byte order.
type V4 uint32

// Well-known addresses.
const (
	V4Any       V4 = 0
	V4Loopback  V4 = 0x7f000001
	V4Broadcast V4 = 0xffffffff
)

// V4From4 builds an address from its four octets, most significant first.
func V4From4(a, b, c, d byte) V4 {
	return V4(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// V4FromUint32 builds an address from a host-order integer.
func V4FromUint32(u uint32) V4 { return V4(u) }

// ParseV4 parses exactly four dot-separated decimal octets, each in [0,255].
func ParseV4(s string) (V4, error) {
	v, err := parseV4(s)
	if err != nil {
		return 0, api.NewAddressError(s, err)
	}
	return v, nil
}

// MustParseV4 is ParseV4 for literals known to be valid; it panics otherwise.
func MustParseV4(s string) V4 {
	v, err := ParseV4(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseV4(s string) (V4, error) {
	var (
		octets [4]byte
		rest   = s
	)
	for i := range octets {
		var part string
		if i < 3 {
			var found bool
			part, rest, found = strings.Cut(rest, ".")
			if !found {
				return 0, errors.Errorf("expected 4 octets, got %d", i+1)
			}
		} else {
			part = rest
			if strings.Contains(part, ".") {
				return 0, errors.New("more than 4 octets")
			}
		}
		if !isDigits(part) {
			return 0, errors.Errorf("octet %d %q is not a decimal number", i+1, part)
		}
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return 0, errors.Errorf("octet %d %q out of range [0,255]", i+1, part)
		}
		octets[i] = byte(n)
	}
	return V4From4(octets[0], octets[1], octets[2], octets[3]), nil
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Octets returns the four octets, most significant first.
func (a V4) Octets() [4]byte {
	return [4]byte{byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}
}

// Uint32 returns the host-order value.
func (a V4) Uint32() uint32 { return uint32(a) }

// IsLoopback reports whether a is in 127.0.0.0/8.
func (a V4) IsLoopback() bool { return a>>24 == 127 }

// IsUnspecified reports whether a is 0.0.0.0.
func (a V4) IsUnspecified() bool { return a == V4Any }

// String renders the canonical dotted quad.
func (a V4) String() string {
	o := a.Octets()
	b := make([]byte, 0, len("255.255.255.255"))
	for i, v := range o {
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendUint(b, uint64(v), 10)
	}
	return string(b)
}
