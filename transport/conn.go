// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"varlink.dev/sansio"
)

// ErrFdPassingNotSupported is returned when a caller attempts to pass
// file descriptors over a net.Conn that doesn't implement FdPasser.
//
// Grounded in the teacher's ErrFdPassingNotSupported (session.go).
var ErrFdPassingNotSupported = errors.New("transport: file descriptor passing is not supported on this net.Conn")

const readBufferSize = 4096

// ClientConn drives a sans-IO varlink.Client against a live net.Conn.
// Unlike the teacher's Session, it does no correlation bookkeeping of
// its own (cq/rq/inflight queues, a condition variable per direction):
// the engine already enforces that a connection has at most one open
// call, so a ClientConn only needs to pump bytes and hold a lock for
// the duration of each blocking operation.
type ClientConn struct {
	conn   net.Conn
	engine *varlink.Client

	mu      sync.Mutex
	readBuf []byte
	rfds    []uintptr
}

// NewClientConn wraps conn with a fresh varlink.Client. The ClientConn
// takes ownership of conn: closing the ClientConn closes conn.
func NewClientConn(conn net.Conn) *ClientConn {
	return &ClientConn{
		conn:    conn,
		engine:  varlink.NewClient(),
		readBuf: make([]byte, readBufferSize),
	}
}

// transmitLocked flushes every chunk of bytes the engine has queued to
// the connection. Callers must hold c.mu.
func (c *ClientConn) transmitLocked() error {
	for {
		t, ok := c.engine.PollTransmit()
		if !ok {
			return nil
		}
		if _, err := c.conn.Write(t.Bytes); err != nil {
			return err
		}
	}
}

// Call sends a method call and returns a ReplyStream to read its
// reply (or replies, for a more call) from.
func (c *ClientConn) Call(ctx context.Context, call varlink.Call) (*ReplyStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(call.FileDescriptors) > 0 {
		fp, ok := c.conn.(FdPasser)
		if !ok {
			return nil, ErrFdPassingNotSupported
		}
		fp.PassFds(call.FileDescriptors...)
	}

	if err := c.engine.SendRequest(call.ToRequest()); err != nil {
		return nil, err
	}
	if err := c.transmitLocked(); err != nil {
		return nil, err
	}
	return &ReplyStream{conn: c, ctx: ctx}, nil
}

// readLocked blocks for more input, feeding it to the engine and
// collecting any file descriptors it carried. Callers must hold c.mu.
func (c *ClientConn) readLocked() error {
	n, err := c.conn.Read(c.readBuf)
	if n > 0 {
		if fp, ok := c.conn.(FdPasser); ok {
			c.rfds = append(c.rfds, fp.CollectFds()...)
		}
		if herr := c.engine.HandleInput(c.readBuf[:n]); herr != nil {
			return herr
		}
	}
	if err == io.EOF {
		return ErrDisconnected
	}
	return err
}

func (c *ClientConn) takeFdsLocked() []uintptr {
	fds := c.rfds
	c.rfds = nil
	return fds
}

// Close closes the underlying connection.
func (c *ClientConn) Close() error {
	c.engine.Close()
	return c.conn.Close()
}

// ReplyStream iterates the reply (or replies) to a single call.
//
// Grounded in the teacher's ReplyStream (transport.go), adapted to
// read events off the sans-IO engine instead of a blocking
// Session.ReadReply.
type ReplyStream struct {
	conn *ClientConn
	ctx  context.Context

	cur      varlink.Reply
	err      error
	done     bool
	upgraded bool
	trailing []byte
}

// Next advances the stream to the next reply, blocking on the
// connection as needed. It reports false once the stream is
// exhausted, either because the final reply has been read, the call
// upgraded the connection, or an error occurred (see Err).
func (s *ReplyStream) Next() bool {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	for {
		ev, ok := s.conn.engine.PollEvent()
		if ok {
			switch ev.Kind {
			case varlink.ClientEventReply:
				s.cur = varlink.Reply{
					Parameters:      ev.Reply.Parameters,
					Continues:       ev.Reply.Continues,
					Error:           ev.Reply.Error,
					FileDescriptors: s.conn.takeFdsLocked(),
				}
				s.done = ev.Final
				return true

			case varlink.ClientEventUpgraded:
				s.upgraded = true
				s.trailing = ev.TrailingBytes
				return false

			case varlink.ClientEventProtocolError:
				s.err = ev.Err
				return false
			}
		}
		if s.done {
			return false
		}

		if err := s.conn.readLocked(); err != nil {
			if s.ctx.Err() != nil {
				s.err = s.ctx.Err()
			} else {
				s.err = err
			}
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
	}
}

// Reply returns the most recently read reply.
func (s *ReplyStream) Reply() varlink.Reply { return s.cur }

// Err returns the error that stopped iteration, if any.
func (s *ReplyStream) Err() error { return s.err }

// Upgraded reports whether the call upgraded the connection, and if
// so, the bytes read past the final Varlink frame, which belong to
// whatever protocol the connection upgraded to.
func (s *ReplyStream) Upgraded() (trailing []byte, ok bool) {
	return s.trailing, s.upgraded
}
