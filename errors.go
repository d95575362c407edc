// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink

import (
	"encoding/json"
	"fmt"
)

// Error represents all varlink errors. Errors consist of a fully qualified
// error code in the form of (e.g. org.interface.ErrorType), and parameters.
//
// Parameters are obtained by json-marshaling the error value. Errors may
// implement json.Marshaler to customize that behaviour.
type Error interface {
	error

	ErrorCode() string
}

type varlinkError struct {
	Code       string
	Parameters json.RawMessage
}

func NewError(code string, kvs ...any) Error {
	if len(kvs)%2 != 0 {
		panic("programming error: key-value pair list has odd number of elements")
	}

	params := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		key, val := kvs[i].(string), kvs[i+1]
		params[key] = val
	}

	verr := &varlinkError{Code: code}

	if len(params) != 0 {
		data, err := json.Marshal(params)
		if err != nil {
			panic(fmt.Sprintf("NewVarlinkError: values don't marshal: %v", err))
		}

		verr.Parameters = json.RawMessage(data)
	}

	return verr
}

func (err *varlinkError) Error() string {
	return err.Code
}

func (err *varlinkError) ErrorCode() string {
	return err.Code
}

func (err *varlinkError) MarshalJSON() ([]byte, error) {
	return []byte(err.Parameters), nil
}

// ErrorKind classifies a ProtocolError raised by a Client or Server
// state machine, matching the protocol-layer error taxonomy: frame
// corruption, bad JSON, host misuse of the machine's API, the peer
// violating Varlink's streaming rules, or use of a closed machine.
type ErrorKind string

const (
	ErrKindFrame             ErrorKind = "Frame"
	ErrKindJSON              ErrorKind = "Json"
	ErrKindProtocolMisuse    ErrorKind = "ProtocolMisuse"
	ErrKindPeerProtocolError ErrorKind = "PeerProtocolError"
	ErrKindClosed            ErrorKind = "Closed"
	ErrKindBusy              ErrorKind = "Busy"
)

// ProtocolError reports a structured protocol-layer failure, as
// distinct from an application error carried in a Reply's Error field.
// A ProtocolError reported through PollEvent (a Frame, Json or
// PeerProtocolError failure) is terminal: HandleInput, SendRequest and
// SendReply return it from then on, and PollEvent reports it again.
// Errors returned directly by SendRequest or SendReply (Busy,
// ProtocolMisuse, Closed, or a Json encoding failure) leave the
// machine's state unchanged.
type ProtocolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is a *ProtocolError of the same Kind,
// ignoring Message, so callers can match on the well-known per-kind
// sentinels below (or any other *ProtocolError) with errors.Is instead
// of unpacking Kind by hand.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newProtocolError(kind ErrorKind, format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors for each ErrorKind, for use with errors.Is. They
// carry no message; matching happens purely on Kind via
// ProtocolError.Is, so e.g. errors.Is(err, ErrBusy) holds regardless of
// the message SendRequest attached to the actual error.
var (
	ErrFrame             = &ProtocolError{Kind: ErrKindFrame}
	ErrJSON              = &ProtocolError{Kind: ErrKindJSON}
	ErrProtocolMisuse    = &ProtocolError{Kind: ErrKindProtocolMisuse}
	ErrPeerProtocolError = &ProtocolError{Kind: ErrKindPeerProtocolError}
	ErrClosed            = &ProtocolError{Kind: ErrKindClosed}
	ErrBusy              = &ProtocolError{Kind: ErrKindBusy}
)
