// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varlink.dev/sansio"
	"varlink.dev/sansio/wire"
)

func TestProtocolErrorIsSentinelByKind(t *testing.T) {
	c := varlink.NewClient()
	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Slow"}))

	err := c.SendRequest(wire.Request{Method: "org.example.Other"})
	require.Error(t, err)
	assert.ErrorIs(t, err, varlink.ErrBusy)
	assert.False(t, errors.Is(err, varlink.ErrClosed))
}

func TestProtocolErrorIsIgnoresMessage(t *testing.T) {
	c := varlink.NewClient()
	c.Close()

	err := c.SendRequest(wire.Request{Method: "org.example.Ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, varlink.ErrClosed)
}
