package port

import (
	"testing"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback0 = api.Sockaddr{Domain: api.DomainInet4, IP: [4]byte{127, 0, 0, 1}}

func openUDP(t *testing.T) api.Handle {
	t.Helper()
	r := Socket(api.DomainInet4, api.SockDatagram, api.ProtoUDP)
	require.True(t, r.Ok(), "socket: %v", r.Err())
	h := r.Value()
	t.Cleanup(func() { Close(h) })
	require.True(t, Bind(h, loopback0).Ok())
	return h
}

func TestInvalidHandleIsRejected(t *testing.T) {
	h := api.InvalidHandle
	buf := make([]byte, 8)

	assert.Equal(t, errBadHandle, Bind(h, loopback0).Code())
	assert.Equal(t, errBadHandle, Connect(h, loopback0).Code())
	assert.Equal(t, errBadHandle, Listen(h, 1).Code())
	assert.Equal(t, errBadHandle, Accept(h).Code())
	assert.Equal(t, errBadHandle, Send(h, buf).Code())
	assert.Equal(t, errBadHandle, SendTo(h, buf, loopback0).Code())
	assert.Equal(t, errBadHandle, Recv(h, buf).Code())
	assert.Equal(t, errBadHandle, RecvFrom(h, buf).Code())
	assert.Equal(t, errBadHandle, Close(h).Code())
	assert.Equal(t, errBadHandle, Shutdown(h).Code())
	assert.Equal(t, errBadHandle, SetBlocking(h, false).Code())
	assert.Equal(t, errBadHandle, IsBlocking(h).Code())
	assert.Equal(t, errBadHandle, SetRxTimeout(h, time.Second).Code())
	assert.Equal(t, errBadHandle, SetTxTimeout(h, time.Second).Code())
	assert.Equal(t, errBadHandle, SetReuseAddr(h, true).Code())
	assert.Equal(t, errBadHandle, LocalAddr(h).Code())
	assert.Equal(t, errBadHandle, PeerAddr(h).Code())
	assert.Equal(t, errBadHandle, WaitReadable(h, 0).Code())
}

func TestUnsupportedEnumsFail(t *testing.T) {
	r := Socket(api.DomainUnspec, api.SockDatagram, api.ProtoUDP)
	assert.False(t, r.Ok())
	assert.NotZero(t, r.Code())
}

func TestDatagramLoopback(t *testing.T) {
	a, b := openUDP(t), openUDP(t)
	la := LocalAddr(a)
	require.True(t, la.Ok())
	assert.NotZero(t, la.Value().Port)
	lb := LocalAddr(b).Value()

	n := SendTo(a, []byte("hello"), lb)
	require.True(t, n.Ok(), "sendto: %v", n.Err())
	assert.Equal(t, 5, n.Value())

	require.True(t, SetRxTimeout(b, time.Second).Ok())
	buf := make([]byte, 64)
	r := RecvFrom(b, buf)
	require.True(t, r.Ok(), "recvfrom: %v", r.Err())
	assert.Equal(t, "hello", string(buf[:r.Value().N]))
	assert.Equal(t, la.Value(), r.Value().From)
}

func TestReceiveTimeoutIsClassified(t *testing.T) {
	h := openUDP(t)
	require.True(t, SetRxTimeout(h, 10*time.Millisecond).Ok())

	start := time.Now()
	r := Recv(h, make([]byte, 16))
	assert.False(t, r.Ok())
	assert.True(t, IsTimeout(r.Code()), "code %v", r.Code())
	assert.Less(t, time.Since(start), time.Second)
}

func TestNonBlockingReceive(t *testing.T) {
	h := openUDP(t)
	s := SetBlocking(h, false)
	require.True(t, s.Ok())
	assert.False(t, s.Value())

	r := Recv(h, make([]byte, 16))
	assert.False(t, r.Ok())
	assert.True(t, IsTimeout(r.Code()), "code %v", r.Code())

	s = SetBlocking(h, true)
	require.True(t, s.Ok())
	assert.True(t, s.Value())
}

func TestEmptyReceiveBuffer(t *testing.T) {
	h := openUDP(t)
	r := RecvFrom(h, nil)
	require.True(t, r.Ok())
	assert.Zero(t, r.Value().N)
}

func TestWaitReadable(t *testing.T) {
	h := openUDP(t)
	start := time.Now()
	w := WaitReadable(h, 20*time.Millisecond)
	require.True(t, w.Ok())
	assert.False(t, w.Value())
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	other := openUDP(t)
	require.True(t, SendTo(other, []byte{1}, LocalAddr(h).Value()).Ok())
	w = WaitReadable(h, time.Second)
	require.True(t, w.Ok())
	assert.True(t, w.Value())
}

func TestStreamAcceptAndShutdown(t *testing.T) {
	lr := Socket(api.DomainInet4, api.SockStream, api.ProtoTCP)
	require.True(t, lr.Ok())
	l := lr.Value()
	defer Close(l)
	require.True(t, SetReuseAddr(l, true).Ok())
	require.True(t, Bind(l, loopback0).Ok())
	require.True(t, Listen(l, 8).Ok())

	cr := Socket(api.DomainInet4, api.SockStream, api.ProtoTCP)
	require.True(t, cr.Ok())
	c := cr.Value()
	defer Close(c)
	require.True(t, Connect(c, LocalAddr(l).Value()).Ok())

	ar := Accept(l)
	require.True(t, ar.Ok(), "accept: %v", ar.Err())
	s := ar.Value()
	defer Close(s)
	assert.Equal(t, LocalAddr(c).Value(), PeerAddr(s).Value())

	require.True(t, Send(c, []byte("ping")).Ok())
	buf := make([]byte, 16)
	r := Recv(s, buf)
	require.True(t, r.Ok())
	assert.Equal(t, "ping", string(buf[:r.Value()]))

	require.True(t, Shutdown(c).Ok())
	r = Recv(s, buf)
	require.True(t, r.Ok())
	assert.Zero(t, r.Value())
}
