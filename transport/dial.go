// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Package transport provides blocking-I/O hosts for the sans-IO
// varlink.Client and varlink.Server state machines: dialing and
// listening on the address forms a Varlink URI names, pumping bytes
// between a net.Conn and the engine, and (on unix sockets) passing
// file descriptors alongside messages.
//
// Grounded in the teacher's Session (session.go), Transport
// (transport.go), UnixConn (unix.go), and server.go's Listen /
// ListenAndServe, adapted to drive the new sans-IO engine instead of
// owning correlation itself.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"varlink.dev/sansio"
)

// ErrUnsupportedScheme is returned by Dial and Listen for URI schemes
// this package does not know how to open. exec: and bridge: activation
// are valid Varlink URI forms but are out of scope here.
var ErrUnsupportedScheme = errors.New("transport: unsupported scheme")

// Dial opens the address named by uri and returns a net.Conn ready to
// be wrapped in a ClientConn.
func Dial(ctx context.Context, uri varlink.URI) (net.Conn, error) {
	network, address, err := dialArgs(uri)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	if uc, ok := conn.(*net.UnixConn); ok {
		return NewUnixConn(uc), nil
	}
	return conn, nil
}

// Listen opens a listener on the address named by uri.
func Listen(uri varlink.URI) (net.Listener, error) {
	network, address, err := dialArgs(uri)
	if err != nil {
		return nil, err
	}
	return net.Listen(network, address)
}

func dialArgs(uri varlink.URI) (network, address string, err error) {
	switch uri.Scheme {
	case "unix":
		addr := uri.Address
		if strings.HasPrefix(addr, "@") {
			// Linux abstract socket namespace: the leading '@' is
			// Varlink's notation and maps to a leading NUL for net.
			addr = "\x00" + addr[1:]
		}
		return "unix", addr, nil

	case "tcp":
		return "tcp", uri.Address, nil

	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri.Scheme)
	}
}

// AcceptUnixConn wraps a net.Conn accepted from a Listen call for
// file-descriptor passing, if the underlying connection supports it.
func AcceptUnixConn(conn net.Conn) net.Conn {
	if uc, ok := conn.(*net.UnixConn); ok {
		return NewUnixConn(uc)
	}
	return conn
}
