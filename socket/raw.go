// File: socket/raw.go
// Package socket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw is the sole owner of one native socket handle. Ownership moves with
// Move/Assign and is never duplicated; Close releases the handle exactly once
// and a finalizer releases handles that were leaked.

package socket

import (
	"fmt"
	"runtime"
	"syscall"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/port"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// owner holds the handle on its own allocation so a finalizer can guard it
// wherever the Raw value itself lives.
type owner struct {
	h   api.Handle
	log *zap.Logger
}

func newOwner(h api.Handle, log *zap.Logger) *owner {
	o := &owner{h: h, log: log}
	runtime.SetFinalizer(o, (*owner).finalize)
	return o
}

func (o *owner) finalize() {
	o.log.Warn("socket handle leaked, closing from finalizer", zap.Uintptr("handle", uintptr(o.h)))
	port.Close(o.h)
}

// Raw exclusively owns one native socket handle. The zero value owns nothing
// and every operation on it fails without touching the OS.
// A Raw is not safe for concurrent use.
type Raw struct {
	own       *owner
	domain    api.Domain
	typ       api.SockType
	blocking  bool
	rxTimeout time.Duration
	txTimeout time.Duration
	log       *zap.Logger
}

// New opens a socket and applies opts. A failure to allocate the native
// handle is returned as *api.NetworkError and no socket is produced.
func New(domain api.Domain, typ api.SockType, proto api.Protocol, opts ...Option) (*Raw, error) {
	cfg := NewConfig(opts...)
	r := port.Socket(domain, typ, proto)
	if !r.Ok() {
		return nil, &api.NetworkError{
			Op:   "socket",
			Code: r.Code(),
			Msg:  fmt.Sprintf("create %s/%s/%s", domain, typ, proto),
		}
	}
	s := Adopt(r.Value(), domain, typ, cfg.logger())
	s.log.Debug("socket opened",
		zap.Uintptr("handle", uintptr(r.Value())),
		zap.Stringer("domain", domain),
		zap.Stringer("type", typ))
	if err := s.Configure(cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Adopt takes ownership of a handle produced elsewhere (accept).
// The handle must not be owned by any other Raw.
func Adopt(h api.Handle, domain api.Domain, typ api.SockType, log *zap.Logger) *Raw {
	if log == nil {
		log = Logger()
	}
	s := &Raw{domain: domain, typ: typ, blocking: true, log: log}
	if h != api.InvalidHandle {
		s.own = newOwner(h, log)
	}
	return s
}

// Configure applies blocking mode and timeouts from cfg.
func (s *Raw) Configure(cfg Config) error {
	if cfg.Logger != nil {
		s.log = cfg.Logger
	}
	if !cfg.Blocking {
		if _, err := s.SetBlocking(false); err != nil {
			return err
		}
	}
	if cfg.RxTimeout != 0 {
		if err := s.SetRxTimeout(cfg.RxTimeout); err != nil {
			return err
		}
	}
	if cfg.TxTimeout != 0 {
		if err := s.SetTxTimeout(cfg.TxTimeout); err != nil {
			return err
		}
	}
	return nil
}

func (s *Raw) logger() *zap.Logger {
	if s.log == nil {
		return Logger()
	}
	return s.log
}

// Logger returns the logger this socket reports to.
func (s *Raw) Logger() *zap.Logger { return s.logger() }

// Handle returns the owned handle, or api.InvalidHandle.
func (s *Raw) Handle() api.Handle {
	if s == nil || s.own == nil {
		return api.InvalidHandle
	}
	return s.own.h
}

// IsValid reports whether s owns a handle.
func (s *Raw) IsValid() bool { return s != nil && s.own != nil }

// Domain returns the address family the socket was opened with.
func (s *Raw) Domain() api.Domain { return s.domain }

// Type returns the transport type the socket was opened with.
func (s *Raw) Type() api.SockType { return s.typ }

// Move transfers ownership into a new Raw and leaves s invalid.
func (s *Raw) Move() *Raw {
	t := &Raw{}
	if s == nil {
		return t
	}
	*t = *s
	s.own = nil
	return t
}

// Assign closes whatever s owns and takes ownership from src, leaving src invalid.
func (s *Raw) Assign(src *Raw) {
	if s == src {
		return
	}
	if err := s.Close(); err != nil {
		s.logger().Warn("close before assign failed", zap.Error(err))
	}
	if src == nil {
		*s = Raw{}
		return
	}
	*s = *src
	src.own = nil
}

// Close releases the handle. Closing an invalid or already closed socket is a no-op.
func (s *Raw) Close() error {
	if s == nil || s.own == nil {
		return nil
	}
	o := s.own
	s.own = nil
	runtime.SetFinalizer(o, nil)
	r := port.Close(o.h)
	s.logger().Debug("socket closed", zap.Uintptr("handle", uintptr(o.h)))
	if !r.Ok() {
		return s.opError("close", "", r.Code())
	}
	return nil
}

// IsBlocking reports the blocking mode, read from the OS where it can be queried.
func (s *Raw) IsBlocking() bool {
	if r := port.IsBlocking(s.Handle()); r.Ok() {
		s.blocking = r.Value()
	}
	return s.blocking
}

// SetBlocking switches blocking mode and returns the mode actually in effect afterwards.
func (s *Raw) SetBlocking(on bool) (bool, error) {
	r := port.SetBlocking(s.Handle(), on)
	s.keepAlive()
	if !r.Ok() {
		return s.blocking, s.opError("set blocking", "", r.Code())
	}
	s.blocking = r.Value()
	return s.blocking, nil
}

// RxTimeout returns the configured receive timeout.
func (s *Raw) RxTimeout() time.Duration { return s.rxTimeout }

// TxTimeout returns the configured send timeout.
func (s *Raw) TxTimeout() time.Duration { return s.txTimeout }

// SetRxTimeout bounds blocking receives and accepts; zero disables the bound.
func (s *Raw) SetRxTimeout(d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "rx timeout %v", d)
	}
	if r := port.SetRxTimeout(s.Handle(), d); !r.Ok() {
		return s.opError("set rx timeout", "", r.Code())
	}
	s.rxTimeout = d
	return nil
}

// SetTxTimeout bounds blocking sends; zero disables the bound.
func (s *Raw) SetTxTimeout(d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "tx timeout %v", d)
	}
	if r := port.SetTxTimeout(s.Handle(), d); !r.Ok() {
		return s.opError("set tx timeout", "", r.Code())
	}
	s.txTimeout = d
	return nil
}

// SetReuseAddr toggles SO_REUSEADDR.
func (s *Raw) SetReuseAddr(on bool) error {
	if r := port.SetReuseAddr(s.Handle(), on); !r.Ok() {
		return s.opError("set reuseaddr", "", r.Code())
	}
	return nil
}

// Bind assigns the local address.
func (s *Raw) Bind(sa api.Sockaddr) error {
	if r := port.Bind(s.Handle(), sa); !r.Ok() {
		return s.opError("bind", sa.String(), r.Code())
	}
	return nil
}

// Connect connects to sa, blocking for the handshake on stream sockets.
func (s *Raw) Connect(sa api.Sockaddr) error {
	r := port.Connect(s.Handle(), sa)
	s.keepAlive()
	if !r.Ok() {
		return s.opError("connect", sa.String(), r.Code())
	}
	return nil
}

// Listen marks the socket passive.
func (s *Raw) Listen(backlog int) error {
	if r := port.Listen(s.Handle(), backlog); !r.Ok() {
		return s.opError("listen", "", r.Code())
	}
	return nil
}

// Accept waits up to timeout (zero = forever) for a connection and returns
// its socket. An expired timeout is an error matching api.ErrTimeout.
// The accepted socket starts blocking with both timeouts disabled, whatever
// the listener was configured with.
func (s *Raw) Accept(timeout time.Duration) (*Raw, error) {
	if timeout > 0 {
		w := port.WaitReadable(s.Handle(), timeout)
		if !w.Ok() {
			return nil, s.opError("accept", "", w.Code())
		}
		if !w.Value() {
			return nil, &api.NetworkError{Op: "accept", Msg: "no connection within " + timeout.String(), Timeout: true}
		}
	}
	r := port.Accept(s.Handle())
	s.keepAlive()
	if !r.Ok() {
		return nil, s.opError("accept", "", r.Code())
	}
	c := Adopt(r.Value(), s.domain, s.typ, s.log)
	if err := c.clearInherited(s); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.logger().Debug("socket accepted", zap.Uintptr("handle", uintptr(r.Value())))
	return c, nil
}

// clearInherited resets the kernel timeouts an accepted socket copies from
// its listener so they agree with the zero values Adopt records.
func (s *Raw) clearInherited(listener *Raw) error {
	if listener.rxTimeout != 0 {
		if r := port.SetRxTimeout(s.Handle(), 0); !r.Ok() {
			return s.opError("accept", "", r.Code())
		}
	}
	if listener.txTimeout != 0 {
		if r := port.SetTxTimeout(s.Handle(), 0); !r.Ok() {
			return s.opError("accept", "", r.Code())
		}
	}
	return nil
}

// Shutdown stops both directions of a connected socket without closing it.
func (s *Raw) Shutdown() error {
	if r := port.Shutdown(s.Handle()); !r.Ok() {
		return s.opError("shutdown", "", r.Code())
	}
	return nil
}

// LocalAddr returns the locally bound address.
func (s *Raw) LocalAddr() (api.Sockaddr, error) {
	r := port.LocalAddr(s.Handle())
	if !r.Ok() {
		return api.Sockaddr{}, s.opError("getsockname", "", r.Code())
	}
	return r.Value(), nil
}

// PeerAddr returns the connected peer address.
func (s *Raw) PeerAddr() (api.Sockaddr, error) {
	r := port.PeerAddr(s.Handle())
	if !r.Ok() {
		return api.Sockaddr{}, s.opError("getpeername", "", r.Code())
	}
	return r.Value(), nil
}

// Send writes p and returns the byte count accepted by the kernel.
// Timeouts and would-block conditions are errors matching api.ErrTimeout.
func (s *Raw) Send(p []byte) (int, error) {
	r := port.Send(s.Handle(), p)
	s.keepAlive()
	if !r.Ok() {
		return 0, s.opError("send", "", r.Code())
	}
	return r.Value(), nil
}

// TrySend is Send reporting failure as false instead of an error.
func (s *Raw) TrySend(p []byte) (int, bool) {
	r := port.Send(s.Handle(), p)
	s.keepAlive()
	return r.Get()
}

// SendTo writes p to sa.
func (s *Raw) SendTo(p []byte, sa api.Sockaddr) (int, error) {
	r := port.SendTo(s.Handle(), p, sa)
	s.keepAlive()
	if !r.Ok() {
		return 0, s.opError("sendto", sa.String(), r.Code())
	}
	return r.Value(), nil
}

// TrySendTo is SendTo reporting failure as false instead of an error.
func (s *Raw) TrySendTo(p []byte, sa api.Sockaddr) (int, bool) {
	r := port.SendTo(s.Handle(), p, sa)
	s.keepAlive()
	return r.Get()
}

// Recv reads into buf and returns the received prefix of buf.
func (s *Raw) Recv(buf []byte) ([]byte, error) {
	r := port.Recv(s.Handle(), buf)
	s.keepAlive()
	if !r.Ok() {
		return nil, s.opError("recv", "", r.Code())
	}
	return buf[:r.Value()], nil
}

// TryRecv is Recv reporting timeout, would-block and failure as false.
func (s *Raw) TryRecv(buf []byte) ([]byte, bool) {
	r := port.Recv(s.Handle(), buf)
	s.keepAlive()
	if !r.Ok() {
		return nil, false
	}
	return buf[:r.Value()], true
}

// RecvFrom reads one datagram into buf and reports its source.
func (s *Raw) RecvFrom(buf []byte) ([]byte, api.Sockaddr, error) {
	r := port.RecvFrom(s.Handle(), buf)
	s.keepAlive()
	if !r.Ok() {
		return nil, api.Sockaddr{}, s.opError("recvfrom", "", r.Code())
	}
	v := r.Value()
	return buf[:v.N], v.From, nil
}

// TryRecvFrom is RecvFrom reporting timeout, would-block and failure as false.
func (s *Raw) TryRecvFrom(buf []byte) ([]byte, api.Sockaddr, bool) {
	r := port.RecvFrom(s.Handle(), buf)
	s.keepAlive()
	if !r.Ok() {
		return nil, api.Sockaddr{}, false
	}
	v := r.Value()
	return buf[:v.N], v.From, true
}

// String describes the socket for logs.
func (s *Raw) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("socket(%s/%s, closed)", s.domain, s.typ)
	}
	return fmt.Sprintf("socket(%s/%s, handle %d)", s.domain, s.typ, uintptr(s.own.h))
}

// keepAlive holds the owner reachable until a syscall using its handle returned.
func (s *Raw) keepAlive() {
	if s != nil {
		runtime.KeepAlive(s.own)
	}
}

func (s *Raw) opError(op, endpoint string, code syscall.Errno) *api.NetworkError {
	return &api.NetworkError{Op: op, Endpoint: endpoint, Code: code, Timeout: port.IsTimeout(code)}
}
