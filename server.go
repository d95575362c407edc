// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink

import (
	"varlink.dev/sansio/wire"
)

// pendingRequest tracks the single in-flight request a Server may be
// servicing at once, and the replies the host has sent back for it so
// far. Varlink is half-duplex per connection: the server never reads
// a new request until the previous call's reply sequence terminates.
//
// Grounded in the teacher's replyWriter (server.go), which tracked a
// single "replied" bool per call guarded by a mutex; generalized here
// to the fuller more/oneway/upgrade state machine required by the
// sans-IO server, without the mutex or the live session it wrapped.
type pendingRequest struct {
	req     wire.Request
	replied bool // at least one reply has been sent for req
}

// Server is a sans-IO Varlink server state machine. It owns no
// socket, thread, or timer: a host feeds it bytes via HandleInput,
// drains bytes to send via PollTransmit, drains decoded events via
// PollEvent, and sends replies to the currently pending request via
// SendReply.
type Server struct {
	dec    *wire.Decoder
	outbuf []byte

	pending *pendingRequest

	upgraded        bool
	upgradeTrailing []byte
	pendingEvent    *ServerEvent

	closed bool
	fatal  *ProtocolError
}

// NewServer creates a Server ready to receive its first request.
func NewServer() *Server {
	return &Server{dec: wire.NewDecoder()}
}

// HandleInput appends bytes read from the transport to the decode
// buffer. Per invariant 1, frames are accepted and buffered even while
// a request is pending; PollEvent simply will not surface a new
// Request event until the pending one's reply sequence terminates.
func (s *Server) HandleInput(p []byte) error {
	if s.closed {
		return newProtocolError(ErrKindClosed, "server is closed")
	}
	if s.fatal != nil {
		return s.fatal
	}
	s.dec.Append(p)
	return nil
}

// PollTransmit yields the next chunk of bytes queued for the
// transport, or ok=false when nothing is pending.
func (s *Server) PollTransmit() (t Transmit, ok bool) {
	if len(s.outbuf) == 0 {
		return Transmit{}, false
	}
	t = Transmit{Bytes: s.outbuf}
	s.outbuf = nil
	return t, true
}

// PollEvent drives the decode buffer forward by at most one frame and
// returns the event it produced, if any. While a request is pending,
// it does not decode further frames (invariant 1).
func (s *Server) PollEvent() (ev ServerEvent, ok bool) {
	if s.fatal != nil {
		return ServerEvent{Kind: ServerEventProtocolError, Err: s.fatal}, true
	}
	if s.pendingEvent != nil {
		ev, s.pendingEvent = *s.pendingEvent, nil
		return ev, true
	}
	if s.closed || s.pending != nil {
		return ServerEvent{}, false
	}

	frame, got, err := s.dec.TakeFrame()
	if err != nil {
		return s.fail(ErrKindFrame, "%v", err), true
	}
	if !got {
		return ServerEvent{}, false
	}

	req, err := wire.UnmarshalRequest(frame)
	if err != nil {
		return s.fail(ErrKindJSON, "decoding request: %v", err), true
	}

	// A oneway request has no reply to wait for, so it never occupies
	// the single pending slot: the next frame can be decoded as soon as
	// this event is handled.
	if !req.OneWay {
		s.pending = &pendingRequest{req: req}
	}
	return ServerEvent{Kind: ServerEventRequest, Request: req}, true
}

// SendReply sends reply for the currently pending request, enforcing
// invariants 2-4: a oneway request accepts no reply at all; a
// non-more request accepts exactly one; a more request accepts any
// number of continues=true replies followed by exactly one terminal
// reply (continues absent/false, or an error); an upgrade request, on
// a non-error reply, transitions the machine to upgraded and the
// caller should stop calling any method but Close.
func (s *Server) SendReply(reply wire.Reply) error {
	if s.closed {
		return newProtocolError(ErrKindClosed, "server is closed")
	}
	if s.fatal != nil {
		return s.fatal
	}
	if s.pending == nil {
		return newProtocolError(ErrKindProtocolMisuse, "send_reply with no request pending")
	}
	req := s.pending.req

	if req.OneWay {
		return newProtocolError(ErrKindProtocolMisuse, "send_reply called for a oneway request")
	}
	if s.pending.replied && !req.More {
		return newProtocolError(ErrKindProtocolMisuse, "more than one reply sent for a non-more request")
	}
	if reply.Continues && !req.More {
		return newProtocolError(ErrKindProtocolMisuse, "continues=true in reply to a non-more request")
	}

	data, err := wire.MarshalReply(reply)
	if err != nil {
		return newProtocolError(ErrKindJSON, "encoding reply: %v", err)
	}
	s.outbuf = wire.AppendFrame(s.outbuf, data)
	s.pending.replied = true

	final := !reply.Continues || reply.Error != ""
	if !final {
		return nil
	}

	upgrading := req.Upgrade && reply.Error == ""
	s.pending = nil

	if upgrading {
		s.upgraded = true
		s.upgradeTrailing = s.dec.TrailingBytes()
		s.pendingEvent = &ServerEvent{Kind: ServerEventUpgrade, TrailingBytes: s.upgradeTrailing}
		s.closed = true
	}
	return nil
}

// TakeUpgrade returns the trailing bytes left in the decode buffer
// after a successful upgrade reply has been sent. This is a
// convenience equivalent to the ServerEventUpgrade event PollEvent
// reports after SendReply completes an Upgrade request's reply
// sequence, for hosts that already hold a reference to the trailing
// bytes and do not need to drive another PollEvent call.
func (s *Server) TakeUpgrade() []byte {
	return s.upgradeTrailing
}

// Close marks the machine terminal.
func (s *Server) Close() {
	s.closed = true
}

func (s *Server) fail(kind ErrorKind, format string, args ...any) ServerEvent {
	s.fatal = newProtocolError(kind, format, args...)
	return ServerEvent{Kind: ServerEventProtocolError, Err: s.fatal}
}
