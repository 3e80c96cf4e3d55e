package udp_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-net/addr"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/socket"
	"github.com/momentics/hioload-net/transport/udp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback0 = addr.NewEndpoint(addr.V4Loopback, 0)

func bound(t *testing.T, opts ...socket.Option) *udp.Socket {
	t.Helper()
	s, err := udp.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Bind(loopback0))
	require.Equal(t, api.StateBound, s.State())
	require.NotZero(t, s.LocalEndpoint().Port())
	return s
}

func TestRoundTrip(t *testing.T) {
	a := bound(t)
	b := bound(t, socket.WithRxTimeout(time.Second))

	n, err := a.SendTo([]byte("hello"), b.LocalEndpoint())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 64)
	got, from, err := b.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, a.LocalEndpoint(), from)
}

func TestReceiveTimeout(t *testing.T) {
	s := bound(t, socket.WithRxTimeout(10*time.Millisecond))
	buf := make([]byte, 16)

	start := time.Now()
	_, _, ok := s.TryRecvFrom(buf)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	start = time.Now()
	_, _, err := s.RecvFrom(buf)
	assert.True(t, errors.Is(err, api.ErrTimeout), "%v", err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRebind(t *testing.T) {
	s := bound(t)
	local := s.LocalEndpoint()

	assert.True(t, s.TryBind(local))
	assert.NoError(t, s.Bind(loopback0))

	other := local.WithPort(local.Port() + 1)
	assert.False(t, s.TryBind(other))
	err := s.Bind(other)
	assert.True(t, errors.Is(err, api.ErrAlreadyBound), "%v", err)
	assert.Equal(t, local, s.LocalEndpoint())
}

func TestConnected(t *testing.T) {
	a := bound(t, socket.WithRxTimeout(time.Second))
	b := bound(t, socket.WithRxTimeout(time.Second))

	require.NoError(t, a.Connect(b.LocalEndpoint()))
	require.NoError(t, b.Connect(a.LocalEndpoint()))
	assert.Equal(t, api.StateConnected, a.State())
	assert.Equal(t, b.LocalEndpoint(), a.RemoteEndpoint())

	assert.True(t, a.TryConnect(b.LocalEndpoint()))
	err := a.Connect(a.LocalEndpoint())
	assert.True(t, errors.Is(err, api.ErrAlreadyConnected), "%v", err)
	assert.Equal(t, b.LocalEndpoint(), a.RemoteEndpoint())

	_, ok := a.TrySend([]byte("ping"))
	require.True(t, ok)
	got, ok := b.TryRecv(make([]byte, 16))
	require.True(t, ok)
	assert.Equal(t, "ping", string(got))

	_, err = b.Send([]byte("pong"))
	require.NoError(t, err)
	got, err = a.Recv(make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
}

func TestUnconnected(t *testing.T) {
	s := bound(t)

	_, err := s.Send([]byte("x"))
	assert.True(t, errors.Is(err, api.ErrNotConnected), "%v", err)
	_, ok := s.TrySend([]byte("x"))
	assert.False(t, ok)
	_, err = s.Recv(make([]byte, 1))
	assert.True(t, errors.Is(err, api.ErrNotConnected), "%v", err)
	assert.False(t, s.RemoteEndpoint().IsValid())
}

func TestAutobindOnSend(t *testing.T) {
	peer := bound(t, socket.WithRxTimeout(time.Second))
	s, err := udp.New()
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.LocalEndpoint().IsValid())

	_, ok := s.TrySendTo([]byte("hi"), peer.LocalEndpoint())
	require.True(t, ok)
	assert.NotZero(t, s.LocalEndpoint().Port())

	_, from, ok := peer.TryRecvFrom(make([]byte, 8))
	require.True(t, ok)
	assert.Equal(t, s.LocalEndpoint().Port(), from.Port())
}

func TestRebindAfterAutobind(t *testing.T) {
	peer := bound(t, socket.WithRxTimeout(time.Second))
	s, err := udp.New()
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, api.StateUnbound, s.State())

	_, err = s.SendTo([]byte("hi"), peer.LocalEndpoint())
	require.NoError(t, err)
	assert.Equal(t, api.StateBound, s.State())
	local := s.LocalEndpoint()
	assert.True(t, local.Addr().IsUnspecified(), "%s", local)

	assert.NoError(t, s.Bind(local))
	err = s.Bind(loopback0)
	assert.True(t, errors.Is(err, api.ErrAlreadyBound), "%v", err)
	assert.Equal(t, local, s.LocalEndpoint())

	_, err = s.SendTo([]byte("again"), peer.LocalEndpoint())
	require.NoError(t, err)
	assert.Equal(t, local, s.LocalEndpoint())
}

func TestClose(t *testing.T) {
	s, err := udp.New()
	require.NoError(t, err)
	require.True(t, s.IsValid())
	require.NoError(t, s.Close())
	assert.False(t, s.IsValid())
	assert.Equal(t, api.StateClosed, s.State())
	assert.NoError(t, s.Close())

	assert.False(t, s.TryBind(loopback0))
	_, ok := s.TrySendTo([]byte("x"), loopback0)
	assert.False(t, ok)
}

func TestBlockingSetters(t *testing.T) {
	s := bound(t)
	on, err := s.SetBlocking(false)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, s.IsBlocking())
	_, ok := s.TryRecv(make([]byte, 1))
	assert.False(t, ok)
	assert.NoError(t, s.SetTxTimeout(time.Second))
}
