// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink

import (
	"fmt"

	"github.com/google/uuid"

	"varlink.dev/sansio/wire"
)

// callMode classifies the streaming behaviour requested by a call, per
// the client state machine's correlation rules.
type callMode int

const (
	modeNormal callMode = iota
	modeMore
	modeOneWay
	modeUpgrade
)

// outstandingCall tracks the single in-flight call a Client may have
// open at once. Varlink carries no request identifiers on the wire,
// so correlation is purely positional: a connection has at most one
// open call, and every reply read off the wire belongs to it.
//
// Grounded in the teacher's Session, which kept an analogous piece of
// per-call bookkeeping (waiting for a reply on the same net.Conn) but
// coupled it to blocking I/O and a condition variable (sync.go); here
// the same "one call owns the connection" invariant is expressed
// without any I/O. The monotonic id and trace UUID are diagnostics
// only, generalized from the teacher's inflight-call bookkeeping, and
// are never placed on the wire (the protocol itself carries no
// request identifiers).
type outstandingCall struct {
	id      uint64
	traceID uuid.UUID
	method  string
	mode    callMode
}

// Client is a sans-IO Varlink client state machine. It owns no
// socket, thread, or timer: a host feeds it bytes via HandleInput,
// drains bytes to send via PollTransmit, and drains decoded events via
// PollEvent.
type Client struct {
	dec    *wire.Decoder
	outbuf []byte

	open   *outstandingCall
	nextID uint64

	pendingEvent *ClientEvent

	closed bool
	fatal  *ProtocolError
}

// NewClient creates a Client ready to send its first request.
func NewClient() *Client {
	return &Client{dec: wire.NewDecoder()}
}

// CurrentCall reports the method name and internal diagnostic
// identifiers of the currently open call, if any.
func (c *Client) CurrentCall() (method string, id uint64, traceID uuid.UUID, ok bool) {
	if c.open == nil {
		return "", 0, uuid.UUID{}, false
	}
	return c.open.method, c.open.id, c.open.traceID, true
}

// SendRequest opens a new call. It fails with ErrKindBusy if a Normal
// or Upgrade call is already open; a OneWay call is closed as soon as
// it is queued, so it never blocks the next request. Sending a new
// request while a More call is open implicitly supersedes it from the
// client's point of view: Varlink defines no cancellation frame, so
// any replies the server keeps streaming to the old call are read as
// replies to the new call, or surface as PeerProtocolError where they
// break its rules (continues=true on a Normal call, any reply while no
// call is open). The host must close the transport to actually stop
// the server from sending more.
func (c *Client) SendRequest(req wire.Request) error {
	if c.closed {
		return newProtocolError(ErrKindClosed, "client is closed")
	}
	if c.fatal != nil {
		return c.fatal
	}
	if c.open != nil && c.open.mode != modeMore {
		return newProtocolError(ErrKindBusy, "a call is already open")
	}

	data, err := wire.MarshalRequest(req)
	if err != nil {
		return newProtocolError(ErrKindJSON, "encoding request: %v", err)
	}
	c.outbuf = wire.AppendFrame(c.outbuf, data)

	c.nextID++
	mode := modeNormal
	switch {
	case req.OneWay:
		mode = modeOneWay
	case req.Upgrade:
		mode = modeUpgrade
	case req.More:
		mode = modeMore
	}

	if mode == modeOneWay {
		c.open = nil
	} else {
		c.open = &outstandingCall{
			id:      c.nextID,
			traceID: uuid.New(),
			method:  req.Method,
			mode:    mode,
		}
	}
	return nil
}

// HandleInput appends bytes read from the transport to the decode
// buffer. It never emits events directly; call PollEvent to drive
// decoding forward.
func (c *Client) HandleInput(p []byte) error {
	if c.closed {
		return newProtocolError(ErrKindClosed, "client is closed")
	}
	if c.fatal != nil {
		return c.fatal
	}
	c.dec.Append(p)
	return nil
}

// PollTransmit yields the next chunk of bytes queued for the
// transport, or ok=false when nothing is pending.
func (c *Client) PollTransmit() (t Transmit, ok bool) {
	if len(c.outbuf) == 0 {
		return Transmit{}, false
	}
	t = Transmit{Bytes: c.outbuf}
	c.outbuf = nil
	return t, true
}

// PollEvent drives the decode buffer forward by at most one frame and
// returns the event it produced, if any.
func (c *Client) PollEvent() (ev ClientEvent, ok bool) {
	if c.fatal != nil {
		return ClientEvent{Kind: ClientEventProtocolError, Err: c.fatal}, true
	}
	if c.pendingEvent != nil {
		ev, c.pendingEvent = *c.pendingEvent, nil
		return ev, true
	}
	if c.closed {
		return ClientEvent{}, false
	}

	frame, got, err := c.dec.TakeFrame()
	if err != nil {
		return c.fail(ErrKindFrame, "%v", err), true
	}
	if !got {
		return ClientEvent{}, false
	}

	if c.open == nil {
		return c.fail(ErrKindPeerProtocolError, "received a reply with no call open"), true
	}

	reply, err := wire.UnmarshalReply(frame)
	if err != nil {
		return c.fail(ErrKindJSON, "decoding reply: %v", err), true
	}
	if p := reply.Parameters; len(p) > 0 && p[0] != '{' && string(p) != "null" {
		return c.fail(ErrKindPeerProtocolError, "reply parameters are not a JSON object"), true
	}

	switch c.open.mode {
	case modeOneWay:
		return c.fail(ErrKindPeerProtocolError, "received a reply to a oneway call"), true

	case modeNormal:
		if reply.Continues {
			return c.fail(ErrKindPeerProtocolError, "continues=true in reply to a non-more call"), true
		}
		c.open = nil
		return ClientEvent{Kind: ClientEventReply, Reply: reply, Final: true}, true

	case modeMore:
		final := !reply.Continues || reply.Error != ""
		if final {
			c.open = nil
		}
		return ClientEvent{Kind: ClientEventReply, Reply: reply, Final: final}, true

	case modeUpgrade:
		if reply.Continues {
			return c.fail(ErrKindPeerProtocolError, "continues=true in reply to an upgrade call"), true
		}
		c.open = nil
		if reply.Error != "" {
			return ClientEvent{Kind: ClientEventReply, Reply: reply, Final: true}, true
		}

		// The upgrade succeeded: the terminal Reply event still carries
		// the structured reply's parameters and must reach the host
		// before the connection stops looking like Varlink, so it is
		// returned now and the Upgraded event (with whatever bytes
		// already arrived past the reply's NUL) is queued for the next
		// PollEvent call, mirroring Server.SendReply's pendingEvent.
		trailing := c.dec.TrailingBytes()
		c.pendingEvent = &ClientEvent{Kind: ClientEventUpgraded, TrailingBytes: trailing}
		c.closed = true
		return ClientEvent{Kind: ClientEventReply, Reply: reply, Final: true}, true

	default:
		panic(fmt.Sprintf("varlink: unreachable call mode %d", c.open.mode))
	}
}

// Close marks the machine terminal. SendRequest and HandleInput then
// fail with ErrKindClosed; PollTransmit still drains bytes queued
// before Close, and PollEvent decodes no further frames.
func (c *Client) Close() {
	c.closed = true
}

func (c *Client) fail(kind ErrorKind, format string, args ...any) ClientEvent {
	c.fatal = newProtocolError(kind, format, args...)
	return ClientEvent{Kind: ClientEventProtocolError, Err: c.fatal}
}
