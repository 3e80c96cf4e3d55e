//go:build windows
// +build windows

// File: internal/port/port_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Winsock port layer. Calls golang.org/x/sys/windows exports where they exist
// and ws2_32.dll procs for the primitives it does not wrap (accept, recv, send,
// ioctlsocket, shutdown, WSAPoll).

package port

import (
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/momentics/hioload-net/api"
	"golang.org/x/sys/windows"
)

// Winsock error codes and option values not exported by x/sys/windows.
const (
	wsaeIntr           syscall.Errno = 10004
	wsaeInval          syscall.Errno = 10022
	wsaeWouldBlock     syscall.Errno = 10035
	wsaeNotSock        syscall.Errno = 10038
	wsaeProtoNoSupport syscall.Errno = 10043
	wsaeSockTNoSupport syscall.Errno = 10044
	wsaeOpNotSupp      syscall.Errno = 10045
	wsaeAfNoSupport    syscall.Errno = 10047
	wsaeTimedOut       syscall.Errno = 10060

	soSndTimeo = 0x1005
	soRcvTimeo = 0x1006
	fionbio    = 0x8004667e
	sdBoth     = 2
	pollRdNorm = 0x0100
	pollNval   = 0x0004
)

const errBadHandle = wsaeNotSock

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procAccept      = modws2_32.NewProc("accept")
	procRecv        = modws2_32.NewProc("recv")
	procSend        = modws2_32.NewProc("send")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procShutdown    = modws2_32.NewProc("shutdown")
	procWSAPoll     = modws2_32.NewProc("WSAPoll")

	startupOnce sync.Once
	startupErr  syscall.Errno
)

// wsaPollFd mirrors WSAPOLLFD.
type wsaPollFd struct {
	fd      uintptr
	events  int16
	revents int16
}

func startup() syscall.Errno {
	startupOnce.Do(func() {
		var data windows.WSAData
		if err := windows.WSAStartup(uint32(0x202), &data); err != nil {
			startupErr = errno(err)
		}
	})
	return startupErr
}

func sock(h api.Handle) windows.Handle { return windows.Handle(h) }

func errno(err error) syscall.Errno {
	if e, ok := err.(syscall.Errno); ok {
		return e
	}
	return wsaeInval
}

// failed reports whether an int-returning Winsock proc returned SOCKET_ERROR.
func failed(r1 uintptr) bool { return int32(r1) == -1 }

func nativeDomain(d api.Domain) (int, bool) {
	switch d {
	case api.DomainInet4:
		return windows.AF_INET, true
	case api.DomainUnix:
		return windows.AF_UNIX, true
	}
	return 0, false
}

func nativeType(t api.SockType) (int, bool) {
	switch t {
	case api.SockStream:
		return windows.SOCK_STREAM, true
	case api.SockDatagram:
		return windows.SOCK_DGRAM, true
	}
	return 0, false
}

func nativeProto(p api.Protocol) (int, bool) {
	switch p {
	case api.ProtoDefault:
		return 0, true
	case api.ProtoTCP:
		return windows.IPPROTO_TCP, true
	case api.ProtoUDP:
		return windows.IPPROTO_UDP, true
	}
	return 0, false
}

func toNative(sa api.Sockaddr) (windows.Sockaddr, syscall.Errno) {
	switch sa.Domain {
	case api.DomainInet4:
		return &windows.SockaddrInet4{Port: int(sa.Port), Addr: sa.IP}, 0
	case api.DomainUnix:
		return &windows.SockaddrUnix{Name: sa.Path}, 0
	}
	return nil, wsaeAfNoSupport
}

func fromNative(sa windows.Sockaddr) api.Sockaddr {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return api.Sockaddr{Domain: api.DomainInet4, IP: v.Addr, Port: uint16(v.Port)}
	case *windows.SockaddrUnix:
		return api.Sockaddr{Domain: api.DomainUnix, Path: v.Name}
	}
	return api.Sockaddr{}
}

// Socket creates a non-inheritable socket.
func Socket(d api.Domain, t api.SockType, p api.Protocol) api.Result[api.Handle] {
	if code := startup(); code != 0 {
		return api.Fail[api.Handle](code)
	}
	family, ok := nativeDomain(d)
	if !ok {
		return api.Fail[api.Handle](wsaeAfNoSupport)
	}
	typ, ok := nativeType(t)
	if !ok {
		return api.Fail[api.Handle](wsaeSockTNoSupport)
	}
	proto, ok := nativeProto(p)
	if !ok {
		return api.Fail[api.Handle](wsaeProtoNoSupport)
	}
	s, err := windows.Socket(family, typ, proto)
	if err != nil {
		return api.Fail[api.Handle](errno(err))
	}
	_ = windows.SetHandleInformation(s, windows.HANDLE_FLAG_INHERIT, 0)
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
	if err := windows.Bind(sock(h), native); err != nil {
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
	if err := windows.Connect(sock(h), native); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Listen marks a stream socket as passive.
func Listen(h api.Handle, backlog int) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if err := windows.Listen(sock(h), backlog); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Accept takes one pending connection off the listen queue.
func Accept(h api.Handle) api.Result[api.Handle] {
	if h == api.InvalidHandle {
		return api.Fail[api.Handle](errBadHandle)
	}
	for {
		r1, _, e1 := procAccept.Call(uintptr(h), 0, 0)
		if r1 == uintptr(windows.InvalidHandle) {
			if errno(e1) == wsaeIntr {
				continue
			}
			return api.Fail[api.Handle](errno(e1))
		}
		_ = windows.SetHandleInformation(windows.Handle(r1), windows.HANDLE_FLAG_INHERIT, 0)
		return api.Ok(api.Handle(r1))
	}
}

func bufPtr(p []byte) uintptr {
	if len(p) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p[0]))
}

// Send writes p on a connected socket.
func Send(h api.Handle, p []byte) api.Result[int] {
	if h == api.InvalidHandle {
		return api.Fail[int](errBadHandle)
	}
	r1, _, e1 := procSend.Call(uintptr(h), bufPtr(p), uintptr(len(p)), 0)
	if failed(r1) {
		return api.Fail[int](errno(e1))
	}
	return api.Ok(int(int32(r1)))
}

// SendTo writes p to the explicit destination sa. Winsock sends datagrams whole.
func SendTo(h api.Handle, p []byte, sa api.Sockaddr) api.Result[int] {
	if h == api.InvalidHandle {
		return api.Fail[int](errBadHandle)
	}
	native, code := toNative(sa)
	if code != 0 {
		return api.Fail[int](code)
	}
	if err := windows.Sendto(sock(h), p, 0, native); err != nil {
		return api.Fail[int](errno(err))
	}
	return api.Ok(len(p))
}

// Recv reads into p. An empty p returns 0 without touching the socket.
func Recv(h api.Handle, p []byte) api.Result[int] {
	if h == api.InvalidHandle {
		return api.Fail[int](errBadHandle)
	}
	if len(p) == 0 {
		return api.Ok(0)
	}
	r1, _, e1 := procRecv.Call(uintptr(h), bufPtr(p), uintptr(len(p)), 0)
	if failed(r1) {
		return api.Fail[int](errno(e1))
	}
	return api.Ok(int(int32(r1)))
}

// RecvFrom reads into p and reports the source address.
func RecvFrom(h api.Handle, p []byte) api.Result[Received] {
	if h == api.InvalidHandle {
		return api.Fail[Received](errBadHandle)
	}
	if len(p) == 0 {
		return api.Ok(Received{})
	}
	n, from, err := windows.Recvfrom(sock(h), p, 0)
	if err != nil {
		return api.Fail[Received](errno(err))
	}
	rcv := Received{N: n}
	if from != nil {
		rcv.From = fromNative(from)
	}
	return api.Ok(rcv)
}

// Close releases the handle.
func Close(h api.Handle) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if err := windows.Closesocket(sock(h)); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// Shutdown disables both directions of a connected socket.
func Shutdown(h api.Handle) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	r1, _, e1 := procShutdown.Call(uintptr(h), sdBoth)
	if failed(r1) {
		return api.Fail[Empty](errno(e1))
	}
	return done
}

// SetBlocking switches FIONBIO. Winsock cannot report the mode back, so a
// successful ioctl is taken as the resulting state.
func SetBlocking(h api.Handle, on bool) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	var arg uint32
	if !on {
		arg = 1
	}
	r1, _, e1 := procIoctlsocket.Call(uintptr(h), fionbio, uintptr(unsafe.Pointer(&arg)))
	if failed(r1) {
		return api.Fail[bool](errno(e1))
	}
	return api.Ok(on)
}

// IsBlocking is not queryable on Winsock; callers track the mode themselves.
func IsBlocking(h api.Handle) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	return api.Fail[bool](wsaeOpNotSupp)
}

// SetRxTimeout sets SO_RCVTIMEO in milliseconds; zero disables it.
func SetRxTimeout(h api.Handle, d time.Duration) api.Result[Empty] {
	return setMillis(h, soRcvTimeo, d)
}

// SetTxTimeout sets SO_SNDTIMEO in milliseconds; zero disables it.
func SetTxTimeout(h api.Handle, d time.Duration) api.Result[Empty] {
	return setMillis(h, soSndTimeo, d)
}

func setMillis(h api.Handle, opt int, d time.Duration) api.Result[Empty] {
	if h == api.InvalidHandle {
		return api.Fail[Empty](errBadHandle)
	}
	if d < 0 {
		return api.Fail[Empty](wsaeInval)
	}
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	if err := windows.SetsockoptInt(sock(h), windows.SOL_SOCKET, opt, ms); err != nil {
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
	if err := windows.SetsockoptInt(sock(h), windows.SOL_SOCKET, windows.SO_REUSEADDR, v); err != nil {
		return api.Fail[Empty](errno(err))
	}
	return done
}

// LocalAddr returns the bound address (getsockname).
func LocalAddr(h api.Handle) api.Result[api.Sockaddr] {
	if h == api.InvalidHandle {
		return api.Fail[api.Sockaddr](errBadHandle)
	}
	sa, err := windows.Getsockname(sock(h))
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
	sa, err := windows.Getpeername(sock(h))
	if err != nil {
		return api.Fail[api.Sockaddr](errno(err))
	}
	return api.Ok(fromNative(sa))
}

// WaitReadable polls h with WSAPoll. It returns false when d elapses first;
// a negative d waits indefinitely.
func WaitReadable(h api.Handle, d time.Duration) api.Result[bool] {
	if h == api.InvalidHandle {
		return api.Fail[bool](errBadHandle)
	}
	dl := deadline(d)
	for {
		fds := []wsaPollFd{{fd: uintptr(h), events: pollRdNorm}}
		r1, _, e1 := procWSAPoll.Call(uintptr(unsafe.Pointer(&fds[0])), 1, uintptr(int32(remainingMillis(dl))))
		if failed(r1) {
			if errno(e1) == wsaeIntr {
				continue
			}
			return api.Fail[bool](errno(e1))
		}
		if int32(r1) == 0 {
			return api.Ok(false)
		}
		if fds[0].revents&pollNval != 0 {
			return api.Fail[bool](errBadHandle)
		}
		return api.Ok(true)
	}
}

// IsTimeout reports whether code is an expired SO_RCVTIMEO/SO_SNDTIMEO or would-block result.
func IsTimeout(code syscall.Errno) bool {
	return code == wsaeWouldBlock || code == wsaeTimedOut
}
