// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Command varlinkctl is a small demonstration front-end driving the
// sans-IO engine and transport package end-to-end: it can call a
// method on a running Varlink service, or parse and reformat an IDL
// description.
//
// The CLI front-end is explicitly out of scope for the core protocol
// engine this module implements; this binary exists only to exercise
// that engine, not to be a complete varlinkctl replacement.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"varlink.dev/sansio"
	"varlink.dev/sansio/idl"
	"varlink.dev/sansio/transport"
)

type callCmd struct {
	URI    string `arg:"" help:"Varlink address to dial, e.g. unix:/run/example.sock"`
	Method string `arg:"" help:"Fully qualified method name, e.g. org.example.ping.Ping"`
	Args   string `arg:"" optional:"" default:"{}" help:"JSON-encoded call parameters"`
	More   bool   `help:"Request multiple replies to the call"`
}

func (c *callCmd) Run() error {
	uri, err := varlink.ParseURI(c.URI)
	if err != nil {
		return err
	}

	conn, err := transport.Dial(context.Background(), uri)
	if err != nil {
		return err
	}
	defer conn.Close()

	var opts []varlink.CallOption
	if c.More {
		opts = append(opts, varlink.More())
	}

	req, err := varlink.MakeCall(c.Method, json.RawMessage(c.Args), opts...)
	if err != nil {
		return err
	}

	cc := transport.NewClientConn(conn)
	rs, err := cc.Call(context.Background(), req)
	if err != nil {
		return err
	}

	for rs.Next() {
		reply := rs.Reply()
		if reply.Error != "" {
			return fmt.Errorf("%s: %s", reply.Error, string(reply.Parameters))
		}
		fmt.Println(string(reply.Parameters))
	}
	return rs.Err()
}

type idlCmd struct {
	Format idlFormatCmd `cmd:"" help:"Parse an IDL file and print its canonical reformatting"`
}

type idlFormatCmd struct {
	File string `arg:"" type:"existingfile" help:"Path to a .varlink interface description"`
}

func (c *idlFormatCmd) Run() error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	intf, err := idl.Parse(strings.NewReader(string(data)))
	if err != nil {
		return err
	}

	fmt.Print(idl.Format(intf))
	return nil
}

var cli struct {
	Call callCmd `cmd:"" help:"Call a method on a running Varlink service"`
	IDL  idlCmd  `cmd:"" help:"Work with Varlink interface descriptions"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("varlinkctl"),
		kong.Description("drive the varlink.dev/sansio engine from the command line"),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
