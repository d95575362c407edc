// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build unix

package transport

import (
	"net"
	"sync"
	"time"
)

// FdPasser is implemented by connections that can carry file
// descriptors alongside their byte stream, such as Unix domain
// sockets using SCM_RIGHTS ancillary messages.
type FdPasser interface {
	// PassFds queues fds to be sent alongside the next Write call.
	PassFds(fd ...uintptr)

	// CollectFds returns and clears the file descriptors accumulated
	// by Read calls since the last CollectFds call. The caller owns
	// the returned descriptors and is responsible for closing them.
	CollectFds() []uintptr
}

// UnixConn wraps a *net.UnixConn, adding FdPasser support via
// SCM_RIGHTS ancillary messages.
//
// Grounded in the teacher's UnixConn (unix.go), unchanged beyond the
// package move.
type UnixConn struct {
	conn *net.UnixConn

	rmu  sync.Mutex
	rfds []uintptr

	wmu  sync.Mutex
	wfds []uintptr
}

var _ net.Conn = (*UnixConn)(nil)
var _ FdPasser = (*UnixConn)(nil)

// NewUnixConn wraps conn to support file-descriptor passing.
func NewUnixConn(conn *net.UnixConn) *UnixConn {
	return &UnixConn{conn: conn}
}

func (c *UnixConn) Read(p []byte) (n int, err error) {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	fds := make([]uintptr, _SCM_MAX_FD)
	n, got, err := recv(raw, p, fds)
	if err != nil {
		return n, err
	}

	if len(got) > 0 {
		c.rmu.Lock()
		c.rfds = append(c.rfds, got...)
		c.rmu.Unlock()
	}
	return n, nil
}

func (c *UnixConn) Write(p []byte) (n int, err error) {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	c.wmu.Lock()
	fds := c.wfds
	c.wfds = nil
	c.wmu.Unlock()

	return send(raw, p, fds)
}

// PassFds queues fds to be sent with the next Write call.
func (c *UnixConn) PassFds(fd ...uintptr) {
	c.wmu.Lock()
	c.wfds = append(c.wfds, fd...)
	c.wmu.Unlock()
}

// CollectFds returns and clears the file descriptors received by Read
// calls so far.
func (c *UnixConn) CollectFds() []uintptr {
	c.rmu.Lock()
	fds := c.rfds
	c.rfds = nil
	c.rmu.Unlock()
	return fds
}

func (c *UnixConn) closePendingFds() {
	c.rmu.Lock()
	rfds := c.rfds
	c.rfds = nil
	c.rmu.Unlock()

	c.wmu.Lock()
	wfds := c.wfds
	c.wfds = nil
	c.wmu.Unlock()

	for _, fd := range rfds {
		_ = sysClose(fd)
	}
	for _, fd := range wfds {
		_ = sysClose(fd)
	}
}

func (c *UnixConn) Close() error {
	c.closePendingFds()
	return c.conn.Close()
}

func (c *UnixConn) CloseRead() error {
	return c.conn.CloseRead()
}

func (c *UnixConn) CloseWrite() error {
	return c.conn.CloseWrite()
}

func (c *UnixConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *UnixConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *UnixConn) SetDeadline(t time.Time) error     { return c.conn.SetDeadline(t) }
func (c *UnixConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *UnixConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
