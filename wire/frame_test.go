// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderTakeFrameIncomplete(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte(`{"method":"a"}`))

	frame, ok, err := d.TakeFrame()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, frame)
}

func TestDecoderTakeFrameSplit(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte(`{"method":"a"}`))
	d.Append([]byte{0})
	d.Append([]byte(`{"method":"b"}`))
	d.Append([]byte{0})

	frame, ok, err := d.TakeFrame()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"method":"a"}`, string(frame))

	frame, ok, err = d.TakeFrame()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"method":"b"}`, string(frame))

	_, ok, err = d.TakeFrame()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecoderAcrossAppendBoundaries(t *testing.T) {
	d := NewDecoder()
	for _, chunk := range []string{`{"metho`, `d":"a"}`, "\x00"} {
		d.Append([]byte(chunk))
	}

	frame, ok, err := d.TakeFrame()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"method":"a"}`, string(frame))
}

func TestDecoderZeroLengthFrameIsInvalid(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte{0})

	_, ok, err := d.TakeFrame()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestDecoderFrameTooLarge(t *testing.T) {
	d := NewDecoderSize(8)
	big := make([]byte, 9)
	for i := range big {
		big[i] = 'x'
	}
	d.Append(big)

	_, ok, err := d.TakeFrame()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoderRecoversAfterFrameTooLarge(t *testing.T) {
	// The cap must admit the 14-byte follow-up frame below.
	d := NewDecoderSize(16)
	big := make([]byte, 17)
	for i := range big {
		big[i] = 'x'
	}
	d.Append(big)
	d.Append([]byte{0})

	_, ok, err := d.TakeFrame()
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	d.Append([]byte(`{"method":"a"}`))
	d.Append([]byte{0})

	frame, ok, err := d.TakeFrame()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"method":"a"}`, string(frame))
}

func TestDecoderRecoversAfterInvalidFrame(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte{0})
	_, _, err := d.TakeFrame()
	require.ErrorIs(t, err, ErrInvalidFrame)

	d.Append([]byte(`{"method":"a"}`))
	d.Append([]byte{0})

	frame, ok, err := d.TakeFrame()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"method":"a"}`, string(frame))
}
