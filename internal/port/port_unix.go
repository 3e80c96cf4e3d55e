// File: internal/port/port_unix.go
//go:build linux || darwin
// +build linux darwin

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BSD socket port layer on golang.org/x/sys/unix.

package port

import (
	"syscall"
	"time"

	"github.com/momentics/hioload-net/api"
	"golang.org/x/sys/unix"
)

const errBadHandle = unix.EBADF

func fd(h api.Handle) int { return int(h) }

func errno(err error) syscall.Errno {
	if e, ok := err.(syscall.Errno); ok {
		return e
	}
	return unix.EINVAL
}

func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

func nativeDomain(d api.Domain) (int, bool) {
	switch d {
	case api.DomainInet4:
		return unix.AF_INET, true
	case api.DomainUnix:
		return unix.AF_UNIX, true
	}
	return 0, false
}

func nativeType(t api.SockType) (int, bool) {
	switch t {
	case api.SockStream:
		return unix.SOCK_STREAM, true
	case api.SockDatagram:
		return unix.SOCK_DGRAM, true
	}
	return 0, false
}

func nativeProto(p api.Protocol) (int, bool) {
	switch p {
	case api.ProtoDefault:
		return 0, true
	case api.ProtoTCP:
		return unix.IPPROTO_TCP, true
	case api.ProtoUDP:
		return unix.IPPROTO_UDP, true
	}
	return 0, false
}

func toNative(sa api.Sockaddr) (unix.Sockaddr, syscall.Errno) {
	switch sa.Domain {
	case api.DomainInet4:
		return &unix.SockaddrInet4{Port: int(sa.Port), Addr: sa.IP}, 0
	case api.DomainUnix:
		return &unix.SockaddrUnix{Name: sa.Path}, 0
	}
	return nil, unix.EAFNOSUPPORT
}

func fromNative(sa unix.Sockaddr) api.Sockaddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return api.Sockaddr{Domain: api.DomainInet4, IP: v.Addr, Port: uint16(v.Port)}
	case *unix.SockaddrUnix:
		name := v.Name
		// An unnamed peer is rendered by x/sys as the abstract name "@".
		if name == "@" {
			name = ""
		}
		return api.Sockaddr{Domain: api.DomainUnix, Path: name}
	}
	return api.Sockaddr{}
}

// Socket creates a close-on-exec socket.
func Socket(d api.Domain, t api.SockType, p api.Protocol) api.Result[api.Handle] {
	family, ok := nativeDomain(d)
	if !ok {
		return api.Fail[api.Handle](unix.EAFNOSUPPORT)
	}
	typ, ok := nativeType(t)
	if !ok {
		return api.Fail[api.Handle](unix.ESOCKTNOSUPPORT)
	}
	proto, ok := nativeProto(p)
	if !ok {
		return api.Fail[api.Handle](unix.EPROTONOSUPPORT)
	}
	s, err := unix.Socket(family, typ, proto)
	if err != nil {
		return api.Fail[api.Handle](errno(err))
	}
	unix.CloseOnExec(s)
	if err := prepare(s); err != nil {
		unix.Close(s)
		return api.Fail[api.Handle](errno(err))
	}
	return api.Ok(api.Handle(s))
}

// Bind assigns the local address.
func Bind(h api.Handle, sa api.Sockaddr) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	native, code := toNative(sa)
	if code != 0 {
		return api.Fail[Empty](code)
	}
	if err := unix.Bind(fd(h), native); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Connect performs the connection handshake (or fixes the default peer of a datagram socket).
func Connect(h api.Handle, sa api.Sockaddr) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	native, code := toNative(sa)
	if code != 0 {
		return api.Fail[Empty](code)
	}
	switch err := unix.Connect(fd(h), native); err {
	case nil:
		return done
	case unix.EINTR:
		// The handshake continues in the kernel; wait for it like the runtime's net package does.
		return waitConnect(h)
	default:
		return api.Fail[Empty](errno(err))
	}
}

func waitConnect(h api.Handle) api.Result[Empty] {
	for {
		fds := []unix.PollFd{{Fd: int32(fd(h)), Events: unix.POLLOUT}}
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return api.Fail[Empty](errno(err))
		}
		soerr, err := unix.GetsockoptInt(fd(h), unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return api.Fail[Empty](errno(err))
		}
		switch e := syscall.Errno(soerr); e {
		case 0, unix.EISCONN:
			return done
		case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
			continue
		default:
			return api.Fail[Empty](e)
		}
	}
}

// Listen marks a stream socket as passive.
func Listen(h api.Handle, backlog int) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if err := unix.Listen(fd(h), backlog); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Accept takes one pending connection off the listen queue.
func Accept(h api.Handle) api.Result[api.Handle] {
	if h == api.InvalidHandle {
		return api.Fail[api.Handle](errBadHandle)
	}
	var nfd int
	err := ignoringEINTR(func() error {
		var err error
		nfd, _, err = unix.Accept(fd(h))
		return err
	})
	if err != nil {
		return api.Fail[api.Handle](errno(err))
	}
	unix.CloseOnExec(nfd)
	if err := prepare(nfd); err != nil {
		unix.Close(nfd)
		return api.Fail[api.Handle](errno(err))
	}
	return api.Ok(api.Handle(nfd))
}

// Send writes p on a connected socket.
func Send(h api.Handle, p []byte) api.Result[int] {
	if h == api.InvalidHandle {
		return api.Fail[int](errBadHandle)
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.SendmsgN(fd(h), p, nil, nil, sendFlags)
		return err
	})
	if err != nil {
		return api.Fail[int](errno(err))
	}
	return api.Ok(n)
}

// SendTo writes p to the explicit destination sa.
func SendTo(h api.Handle, p []byte, sa api.Sockaddr) api.Result[int] {
	if h == api.InvalidHandle {
		return api.Fail[int](errBadHandle)
	}
	native, code := toNative(sa)
	if code != 0 {
		return api.Fail[int](code)
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.SendmsgN(fd(h), p, nil, native, sendFlags)
		return err
	})
	if err != nil {
		return api.Fail[int](errno(err))
	}
	return api.Ok(n)
}

// Recv reads into p. An empty p returns 0 without touching the socket.
func Recv(h api.Handle, p []byte) api.Result[int] {
	r := RecvFrom(h, p)
	if !r.Ok() {
		return api.Fail[int](r.Code())
	}
	return api.Ok(r.Value().N)
}

// RecvFrom reads into p and reports the source address.
func RecvFrom(h api.Handle, p []byte) api.Result[Received] {
	if h == api.InvalidHandle {
		return api.Fail[Received](errBadHandle)
	}
	if len(p) == 0 {
		return api.Ok(Received{})
	}
	var (
		n    int
		from unix.Sockaddr
	)
	err := ignoringEINTR(func() error {
		var err error
		n, from, err = unix.Recvfrom(fd(h), p, 0)
		return err
	})
	if err != nil {
		return api.Fail[Received](errno(err))
	}
	rcv := Received{N: n}
	if from != nil {
		rcv.From = fromNative(from)
	}
	return api.Ok(rcv)
}

// Close releases the handle. EINTR is not retried: the descriptor is gone either way.
func Close(h api.Handle) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if err := unix.Close(fd(h)); err != nil && err != unix.EINTR {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Shutdown disables both directions of a connected socket.
func Shutdown(h api.Handle) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if err := unix.Shutdown(fd(h), unix.SHUT_RDWR); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// SetBlocking switches O_NONBLOCK and returns the mode read back from the descriptor.
func SetBlocking(h api.Handle, on bool) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	if err := unix.SetNonblock(fd(h), !on); err != nil {
		return api.Fail[bool](errno(err))
	}
	return IsBlocking(h)
}

// IsBlocking queries O_NONBLOCK.
func IsBlocking(h api.Handle) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	flags, err := unix.FcntlInt(uintptr(fd(h)), unix.F_GETFL, 0)
	if err != nil {
		return api.Fail[bool](errno(err))
	}
	return api.Ok(flags&unix.O_NONBLOCK == 0)
}

// SetRxTimeout sets SO_RCVTIMEO; zero disables it.
func SetRxTimeout(h api.Handle, d time.Duration) api.Result[Empty] {
	return setTimeval(h, unix.SO_RCVTIMEO, d)
}

// SetTxTimeout sets SO_SNDTIMEO; zero disables it.
func SetTxTimeout(h api.Handle, d time.Duration) api.Result[Empty] {
	return setTimeval(h, unix.SO_SNDTIMEO, d)
}

func setTimeval(h api.Handle, opt int, d time.Duration) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if d < 0 {
		return api.Fail[Empty](unix.EINVAL)
	}
	tv := unix.NsecToTimeval(clampTimeval(d).Nanoseconds())
	if err := unix.SetsockoptTimeval(fd(h), unix.SOL_SOCKET, opt, &tv); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// SetReuseAddr toggles SO_REUSEADDR.
func SetReuseAddr(h api.Handle, on bool) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	v := 0
	if on {
		v = 1
	}
	if err := unix.SetsockoptInt(fd(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, v); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// LocalAddr returns the bound address (getsockname).
func LocalAddr(h api.Handle) api.Result[api.Sockaddr] {
	if h == api.InvalidHandle {
		return api.Fail[api.Sockaddr](errBadHandle)
	}
	sa, err := unix.Getsockname(fd(h))
	if err != nil {
		return api.Fail[api.Sockaddr](errno(err))
	}
	return api.Ok(fromNative(sa))
}

// PeerAddr returns the connected peer address (getpeername).
func PeerAddr(h api.Handle) api.Result[api.Sockaddr] {
	if h == api.InvalidHandle {
		return api.Fail[api.Sockaddr](errBadHandle)
	}
	sa, err := unix.Getpeername(fd(h))
	if err != nil {
		return api.Fail[api.Sockaddr](errno(err))
	}
	return api.Ok(fromNative(sa))
}

// WaitReadable polls h for readability. It returns false when d elapses first;
// a negative d waits indefinitely.
func WaitReadable(h api.Handle, d time.Duration) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	dl := deadline(d)
	for {
		fds := []unix.PollFd{{Fd: int32(fd(h)), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, remainingMillis(dl))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return api.Fail[bool](errno(err))
		}
		if n == 0 {
			return api.Ok(false)
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return api.Fail[bool](errBadHandle)
		}
		return api.Ok(true)
	}
}

// IsTimeout reports whether code is an expired SO_RCVTIMEO/SO_SNDTIMEO or would-block result.
func IsTimeout(code syscall.Errno) bool {
	return code == unix.EAGAIN || code == unix.EWOULDBLOCK
}
