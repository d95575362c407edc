// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/json"
)

// Request is the wire representation of a Varlink method call.
//
// Grounded in the teacher's varlink.Call (varlink.go), adapted from an
// I/O-bound call object carrying its own URI and file descriptors to a
// pure wire-format value: the sans-IO engine built on top of this
// package owns correlation and streaming semantics, this type owns
// only marshaling.
type Request struct {
	// Method is the fully qualified <interface>.<method> name.
	Method string `json:"method"`

	// Parameters holds the call's input parameters. A nil value is
	// omitted from the wire form entirely, never emitted as JSON null.
	Parameters json.RawMessage `json:"parameters,omitempty"`

	// More requests that the server may send zero or more replies with
	// continues=true before a final reply.
	More bool `json:"more,omitempty"`

	// OneWay instructs the server to suppress its reply entirely.
	OneWay bool `json:"oneway,omitempty"`

	// Upgrade requests the connection be handed over to a custom
	// protocol after a successful reply.
	Upgrade bool `json:"upgrade,omitempty"`
}

// Reply is the wire representation of a Varlink method reply.
type Reply struct {
	// Parameters holds the reply's output parameters. Unlike Request,
	// a reply's parameters field is never omitted by MarshalReply,
	// since most Varlink peers expect it present even when empty.
	Parameters json.RawMessage `json:"parameters"`

	// Continues, if true, tells the client to expect further replies
	// to the same call.
	Continues bool `json:"continues,omitempty"`

	// Error, if non-empty, is the fully qualified reverse-domain error
	// name and indicates the call failed; Parameters then carries the
	// error's fields.
	Error string `json:"error,omitempty"`
}

// MarshalRequest encodes req to its canonical wire form: a JSON object
// with fields in insertion order, no trailing NUL.
func MarshalRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

// UnmarshalRequest decodes a single frame into a Request.
func UnmarshalRequest(frame []byte) (Request, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// MarshalReply encodes reply to its canonical wire form. Parameters is
// always emitted, even when nil, per the wire encoding rule that
// replies must carry a parameters object.
func MarshalReply(reply Reply) ([]byte, error) {
	if reply.Parameters == nil {
		reply.Parameters = json.RawMessage(`{}`)
	}
	return json.Marshal(reply)
}

// UnmarshalReply decodes a single frame into a Reply.
func UnmarshalReply(frame []byte) (Reply, error) {
	var reply Reply
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}
