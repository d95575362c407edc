// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Package wire implements the Varlink wire framing and message codec:
// NUL-terminated JSON messages, decoded from an in-memory buffer rather
// than a live connection, so that the protocol engine built on top of
// it never touches a socket directly.
package wire

import (
	"bytes"
	"errors"
)

// DefaultMaxFrameSize is the frame size cap applied by a Decoder
// constructed with NewDecoder. Varlink messages are JSON documents and
// are not expected to be large; this bounds how much unbounded input a
// misbehaving peer can make a Decoder buffer before a frame ever
// terminates.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// ErrFrameTooLarge is returned by TakeFrame when a frame exceeds the
// Decoder's size cap: either the buffer holds more than the cap without
// a terminating NUL, or the next NUL lies past the cap (the oversized
// frame and its NUL are then discarded).
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// ErrInvalidFrame is returned by TakeFrame for a zero-length frame (two
// consecutive NUL bytes, or a NUL as the very first byte of a
// session).
var ErrInvalidFrame = errors.New("wire: zero-length frame")

// Decoder accumulates bytes fed by Append and splits them into
// NUL-terminated frames. It owns no I/O of its own: the host reads
// from whatever transport it likes and feeds the bytes in.
//
// Grounded in the teacher's Session.readMsgUnlocked, which called
// bufio.Reader.ReadBytes('\x00') directly against a live connection;
// here the same split-on-NUL logic operates against an internal
// buffer so it can be driven without blocking on I/O.
type Decoder struct {
	buf      bytes.Buffer
	maxFrame int
}

// NewDecoder creates a Decoder with the default frame size cap.
func NewDecoder() *Decoder {
	return &Decoder{maxFrame: DefaultMaxFrameSize}
}

// NewDecoderSize creates a Decoder with an explicit frame size cap.
func NewDecoderSize(maxFrame int) *Decoder {
	return &Decoder{maxFrame: maxFrame}
}

// Append adds bytes read from the transport to the decode buffer.
func (d *Decoder) Append(p []byte) {
	d.buf.Write(p)
}

// Buffered reports how many undecoded bytes are currently held.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// TakeFrame returns the next complete frame (the bytes up to but not
// including the terminating NUL), consuming them plus the NUL from the
// buffer. It reports ok=false when the buffer holds no complete frame
// yet; the caller should Append more bytes and try again.
func (d *Decoder) TakeFrame() (frame []byte, ok bool, err error) {
	b := d.buf.Bytes()

	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		if d.maxFrame > 0 && len(b) > d.maxFrame {
			return nil, false, ErrFrameTooLarge
		}
		return nil, false, nil
	}

	if d.maxFrame > 0 && idx > d.maxFrame {
		// Discard the oversized frame and its terminating NUL now, even
		// though it is being rejected, so the next call resynchronizes
		// on whatever frame follows instead of re-finding this same NUL
		// forever.
		d.buf.Next(idx + 1)
		return nil, false, ErrFrameTooLarge
	}

	frame = make([]byte, idx)
	copy(frame, b[:idx])
	d.buf.Next(idx + 1)

	if idx == 0 {
		return nil, false, ErrInvalidFrame
	}

	return frame, true, nil
}

// TrailingBytes drains and returns every byte currently buffered,
// without looking for a NUL terminator. Used once a connection has
// upgraded away from Varlink framing: any bytes already read past the
// terminating NUL of the final protocol frame belong to the new
// protocol, not to this Decoder.
func (d *Decoder) TrailingBytes() []byte {
	if d.buf.Len() == 0 {
		return nil
	}
	out := make([]byte, d.buf.Len())
	copy(out, d.buf.Bytes())
	d.buf.Reset()
	return out
}

// AppendFrame encodes a message frame by appending it plus the
// terminating NUL byte, in the wire format described in the protocol's
// framing rules.
func AppendFrame(dst []byte, msg []byte) []byte {
	dst = append(dst, msg...)
	return append(dst, 0)
}
