package addr_test

import (
	"strings"
	"testing"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseV4(t *testing.T) {
	a, err := addr.ParseV4("192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, addr.V4From4(192, 168, 1, 20), a)
	assert.Equal(t, [4]byte{192, 168, 1, 20}, a.Octets())
	assert.Equal(t, "192.168.1.20", a.String())

	again, err := addr.ParseV4(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestParseV4Canonicalises(t *testing.T) {
	a, err := addr.ParseV4("010.000.001.255")
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.255", a.String())
}

func TestParseV4Rejects(t *testing.T) {
	for _, in := range []string{
		"", "1.2.3", "1.2.3.4.5", "256.0.0.1", "1..2.3", "a.b.c.d",
		"+1.2.3.4", "1.2.3.-4", " 1.2.3.4", "1.2.3.4 ", "1.2.3.",
	} {
		_, err := addr.ParseV4(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, api.ErrInvalidAddress), in)
		ae, ok := api.IsAddressError(err)
		require.True(t, ok, in)
		assert.Equal(t, in, ae.Input)
	}
}

func TestV4Constants(t *testing.T) {
	assert.Equal(t, "0.0.0.0", addr.V4Any.String())
	assert.Equal(t, "127.0.0.1", addr.V4Loopback.String())
	assert.Equal(t, "255.255.255.255", addr.V4Broadcast.String())
	assert.True(t, addr.V4Loopback.IsLoopback())
	assert.True(t, addr.V4Any.IsUnspecified())
	assert.Equal(t, uint32(0x7f000001), addr.V4Loopback.Uint32())
	assert.Equal(t, addr.V4Loopback, addr.V4FromUint32(0x7f000001))
}

func TestParsePort(t *testing.T) {
	p, err := addr.ParsePort("65535")
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), p.Uint16())
	assert.Equal(t, "65535", p.String())

	for _, in := range []string{"65536", "-1", "", "80a", "1e3"} {
		_, err := addr.ParsePort(in)
		ae, ok := api.IsAddressError(err)
		require.True(t, ok, in)
		assert.Equal(t, in, ae.Port)
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := addr.ParseEndpoint("127.0.0.1:8080")
	require.NoError(t, err)
	assert.True(t, ep.IsValid())
	assert.Equal(t, addr.V4Loopback, ep.Addr())
	assert.Equal(t, addr.Port(8080), ep.Port())
	assert.Equal(t, "127.0.0.1:8080", ep.String())
	assert.Equal(t, ep, addr.NewEndpoint(addr.V4Loopback, 8080))

	sa := ep.Sockaddr()
	assert.Equal(t, api.DomainInet4, sa.Domain)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, sa.IP)
	assert.Equal(t, uint16(8080), sa.Port)
	assert.Equal(t, ep, addr.EndpointFromSockaddr(sa))
}

func TestParseEndpointErrors(t *testing.T) {
	_, err := addr.ParseEndpoint("127.0.0.1")
	ae, ok := api.IsAddressError(err)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", ae.Input)
	assert.Empty(t, ae.Port)

	_, err = addr.ParseEndpoint("127.0.0.1:99999")
	ae, ok = api.IsAddressError(err)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:99999", ae.Input)
	assert.Equal(t, "99999", ae.Port)

	_, err = addr.ParseEndpoint("1.2.3.4:abc")
	ae, ok = api.IsAddressError(err)
	require.True(t, ok)
	assert.Equal(t, "1.2.3.4:abc", ae.Input)
	assert.Equal(t, "abc", ae.Port)

	_, err = addr.ParseEndpoint("300.0.0.1:80")
	ae, ok = api.IsAddressError(err)
	require.True(t, ok)
	assert.Empty(t, ae.Port)
}

func TestEndpointEquality(t *testing.T) {
	var zero, other addr.Endpoint
	assert.False(t, zero.IsValid())
	assert.True(t, zero.Equal(other))
	assert.Equal(t, "<invalid>", zero.String())

	valid := addr.MustParseEndpoint("0.0.0.0:0")
	assert.True(t, valid.IsValid())
	assert.False(t, zero.Equal(valid))
	assert.NotEqual(t, valid, valid.WithPort(1))
	assert.False(t, addr.EndpointFromSockaddr(api.Sockaddr{Domain: api.DomainUnix}).IsValid())
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { addr.MustParseEndpoint("nope") })
	assert.Panics(t, func() { addr.MustParseV4("1.2.3") })
}

func TestUnixEndpoint(t *testing.T) {
	ep, err := addr.NewUnixEndpoint("/tmp/app.sock")
	require.NoError(t, err)
	assert.True(t, ep.IsValid())
	assert.False(t, ep.IsUnnamed())
	assert.Equal(t, "/tmp/app.sock", ep.String())
	assert.Equal(t, ep, addr.UnixEndpointFromSockaddr(ep.Sockaddr()))

	_, err = addr.NewUnixEndpoint("")
	assert.True(t, errors.Is(err, api.ErrInvalidAddress))

	_, err = addr.NewUnixEndpoint("/" + strings.Repeat("x", addr.MaxUnixPath))
	assert.True(t, errors.Is(err, api.ErrInvalidAddress))

	unnamed := addr.UnixEndpointFromSockaddr(api.Sockaddr{Domain: api.DomainUnix})
	assert.True(t, unnamed.IsValid())
	assert.True(t, unnamed.IsUnnamed())
	assert.Equal(t, "<unnamed>", unnamed.String())

	var zero addr.UnixEndpoint
	assert.Equal(t, "<invalid>", zero.String())
	assert.False(t, zero.Equal(unnamed))
}
