// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRequestOmitsNilParameters(t *testing.T) {
	data, err := MarshalRequest(Request{Method: "org.example.Ping"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"org.example.Ping"}`, string(data))
}

func TestMarshalRequestOmitsFalseBooleans(t *testing.T) {
	data, err := MarshalRequest(Request{
		Method:     "org.example.Ping",
		Parameters: json.RawMessage(`{"n":1}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"org.example.Ping","parameters":{"n":1}}`, string(data))
}

func TestMarshalRequestIncludesSetFlags(t *testing.T) {
	data, err := MarshalRequest(Request{
		Method: "org.example.Ping",
		More:   true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"org.example.Ping","more":true}`, string(data))
}

func TestMarshalReplyAlwaysIncludesParameters(t *testing.T) {
	data, err := MarshalReply(Reply{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"parameters":{}}`, string(data))
}

func TestMarshalReplyError(t *testing.T) {
	data, err := MarshalReply(Reply{
		Parameters: json.RawMessage(`{"reason":"bad"}`),
		Error:      "org.example.Failed",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"parameters":{"reason":"bad"},"error":"org.example.Failed"}`, string(data))
}

func TestUnmarshalRequestRejectsUnknownFields(t *testing.T) {
	_, err := UnmarshalRequest([]byte(`{"method":"a","bogus":true}`))
	assert.Error(t, err)
}

func TestRequestRoundTrip(t *testing.T) {
	want := Request{
		Method:     "org.example.Sum",
		Parameters: json.RawMessage(`{"a":1,"b":2}`),
		More:       true,
	}
	data, err := MarshalRequest(want)
	require.NoError(t, err)

	got, err := UnmarshalRequest(data)
	require.NoError(t, err)
	assert.Equal(t, want.Method, got.Method)
	assert.JSONEq(t, string(want.Parameters), string(got.Parameters))
	assert.Equal(t, want.More, got.More)
}
