// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package varlink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varlink.dev/sansio"
	"varlink.dev/sansio/wire"
)

// pumpToServer drains every chunk the client has queued and feeds it
// to the server, and vice versa. Since both engines are purely
// in-memory, the two sides of a connection can be wired together
// directly in a test without any net.Conn at all.
func pumpToServer(t *testing.T, c *varlink.Client, s *varlink.Server) {
	t.Helper()
	for {
		tx, ok := c.PollTransmit()
		if !ok {
			return
		}
		require.NoError(t, s.HandleInput(tx.Bytes))
	}
}

func pumpToClient(t *testing.T, s *varlink.Server, c *varlink.Client) {
	t.Helper()
	for {
		tx, ok := s.PollTransmit()
		if !ok {
			return
		}
		require.NoError(t, c.HandleInput(tx.Bytes))
	}
}

func TestNormalCallReply(t *testing.T) {
	c := varlink.NewClient()
	s := varlink.NewServer()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Ping"}))
	pumpToServer(t, c, s)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ServerEventRequest, ev.Kind)
	assert.Equal(t, "org.example.Ping", ev.Request.Method)

	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{"pong":true}`)}))
	pumpToClient(t, s, c)

	cev, ok := c.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ClientEventReply, cev.Kind)
	assert.True(t, cev.Final)
	assert.JSONEq(t, `{"pong":true}`, string(cev.Reply.Parameters))
}

func TestMoreCallStreamsReplies(t *testing.T) {
	c := varlink.NewClient()
	s := varlink.NewServer()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Watch", More: true}))
	pumpToServer(t, c, s)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	require.True(t, ev.Request.More)

	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{"n":1}`), Continues: true}))
	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{"n":2}`), Continues: true}))
	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{"n":3}`)}))
	pumpToClient(t, s, c)

	var got []string
	for i := 0; i < 3; i++ {
		cev, ok := c.PollEvent()
		require.True(t, ok)
		require.Equal(t, varlink.ClientEventReply, cev.Kind)
		got = append(got, string(cev.Reply.Parameters))
		if i < 2 {
			assert.False(t, cev.Final)
		} else {
			assert.True(t, cev.Final)
		}
	}
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, got)

	// The call is closed now: the server refuses a further reply.
	err := s.SendReply(wire.Reply{Parameters: []byte(`{}`)})
	require.Error(t, err)
}

func TestOneWayCallGetsNoReplySlot(t *testing.T) {
	c := varlink.NewClient()
	s := varlink.NewServer()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Notify", OneWay: true}))
	pumpToServer(t, c, s)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	assert.True(t, ev.Request.OneWay)

	// A oneway request must refuse any reply.
	err := s.SendReply(wire.Reply{Parameters: []byte(`{}`)})
	require.Error(t, err)

	// And a second request can be decoded right away: the oneway call
	// never occupied the server's single pending slot.
	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Ping"}))
	pumpToServer(t, c, s)

	ev2, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "org.example.Ping", ev2.Request.Method)
}

func TestClientRejectsSecondCallWhileOneIsOpen(t *testing.T) {
	c := varlink.NewClient()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Slow"}))
	err := c.SendRequest(wire.Request{Method: "org.example.Other"})
	require.Error(t, err)

	var perr *varlink.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, varlink.ErrKindBusy, perr.Kind)
}

func TestUpgradeHandsOffTrailingBytes(t *testing.T) {
	c := varlink.NewClient()
	s := varlink.NewServer()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Upgrade", Upgrade: true}))
	pumpToServer(t, c, s)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	require.True(t, ev.Request.Upgrade)

	require.NoError(t, s.HandleInput([]byte("raw-payload-after-upgrade")))
	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{"ok":true}`)}))

	trailing := s.TakeUpgrade()
	assert.Equal(t, []byte("raw-payload-after-upgrade"), trailing)

	pumpToClient(t, s, c)
	// Raw bytes of the upgraded protocol land in the client's buffer
	// right behind the reply frame.
	require.NoError(t, c.HandleInput([]byte("raw-payload-after-upgrade")))

	// The terminal structured reply arrives first, carrying the
	// upgrade reply's parameters, before the connection stops looking
	// like Varlink.
	rev, ok := c.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ClientEventReply, rev.Kind)
	assert.True(t, rev.Final)
	assert.JSONEq(t, `{"ok":true}`, string(rev.Reply.Parameters))

	cev, ok := c.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ClientEventUpgraded, cev.Kind)
	assert.Equal(t, []byte("raw-payload-after-upgrade"), cev.TrailingBytes)
}

func TestServerEmitsUpgradeEvent(t *testing.T) {
	c := varlink.NewClient()
	s := varlink.NewServer()

	require.NoError(t, c.SendRequest(wire.Request{Method: "org.example.Upgrade", Upgrade: true}))
	pumpToServer(t, c, s)

	ev, ok := s.PollEvent()
	require.True(t, ok)
	require.True(t, ev.Request.Upgrade)

	require.NoError(t, s.HandleInput([]byte("raw-payload-after-upgrade")))
	require.NoError(t, s.SendReply(wire.Reply{Parameters: []byte(`{}`)}))

	uev, ok := s.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ServerEventUpgrade, uev.Kind)
	assert.Equal(t, []byte("raw-payload-after-upgrade"), uev.TrailingBytes)

	// Mirrors TakeUpgrade's convenience accessor.
	assert.Equal(t, uev.TrailingBytes, s.TakeUpgrade())
}

func TestPeerProtocolErrorOnUnexpectedReply(t *testing.T) {
	c := varlink.NewClient()

	require.NoError(t, c.HandleInput([]byte(`{"parameters":{}}`)))
	require.NoError(t, c.HandleInput([]byte{0}))

	ev, ok := c.PollEvent()
	require.True(t, ok)
	require.Equal(t, varlink.ClientEventProtocolError, ev.Kind)
	assert.Equal(t, varlink.ErrKindPeerProtocolError, ev.Err.Kind)
}
