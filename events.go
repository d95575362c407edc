// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink

import "varlink.dev/sansio/wire"

// ClientEvent is the sum type of events a Client's PollEvent can
// produce. Exactly one of the accessor-style fields is meaningful,
// selected by Kind.
type ClientEvent struct {
	Kind ClientEventKind

	// Reply, Final: set when Kind == ClientEventReply.
	Reply wire.Reply
	Final bool

	// TrailingBytes: set when Kind == ClientEventUpgraded. Any bytes
	// already appended to the decode buffer past the terminating NUL
	// of the upgrade reply, handed back to the host since the machine
	// stops decoding protocol frames from this point on.
	TrailingBytes []byte

	// Err: set when Kind == ClientEventProtocolError.
	Err *ProtocolError
}

// ClientEventKind discriminates the variants of ClientEvent.
type ClientEventKind int

const (
	ClientEventReply ClientEventKind = iota
	ClientEventUpgraded
	ClientEventProtocolError
)

// ServerEvent is the sum type of events a Server's PollEvent can
// produce.
type ServerEvent struct {
	Kind ServerEventKind

	// Request: set when Kind == ServerEventRequest.
	Request wire.Request

	// TrailingBytes: set when Kind == ServerEventUpgrade.
	TrailingBytes []byte

	// Err: set when Kind == ServerEventProtocolError.
	Err *ProtocolError
}

// ServerEventKind discriminates the variants of ServerEvent.
type ServerEventKind int

const (
	ServerEventRequest ServerEventKind = iota
	ServerEventUpgrade
	ServerEventProtocolError
)

// Transmit is a chunk of bytes the host must write to the transport,
// yielded by PollTransmit on both Client and Server.
type Transmit struct {
	Bytes []byte
}
