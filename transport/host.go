// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package transport

import (
	"fmt"
	"io"
	"net"
	"path"
	"runtime/debug"
	"slices"
	"strings"

	"varlink.dev/sansio"
	"varlink.dev/sansio/internal/service"
)

// ReplyWriter is passed to a MethodHandler to send one or more replies
// for the call it was given.
//
// Grounded in the teacher's ReplyWriter (server.go), narrowed to the
// two operations a handler actually needs; the more/oneway/upgrade
// bookkeeping the teacher's replyWriter did inline now lives in the
// sans-IO Server itself.
type ReplyWriter interface {
	// WriteReply marshals v as the reply parameters and sends it. Pass
	// opts to mark the reply as non-final (Continues) for a more call.
	WriteReply(v any, opts ...varlink.ReplyOption) error

	// WriteError sends err as an error reply, terminating the call.
	WriteError(err error) error
}

// MethodHandler serves a single method call.
type MethodHandler interface {
	ServeMethod(w ReplyWriter, call *varlink.Call)
}

// HandlerFunc adapts a plain function to a MethodHandler.
type HandlerFunc func(w ReplyWriter, call *varlink.Call)

func (fn HandlerFunc) ServeMethod(w ReplyWriter, call *varlink.Call) {
	fn(w, call)
}

// replyWriter is the ServerConn-bound ReplyWriter handed to handlers
// invoked from Serve.
type replyWriter struct {
	sc *ServerConn
}

func (w *replyWriter) WriteReply(v any, opts ...varlink.ReplyOption) error {
	reply, err := varlink.MakeReply(v, opts...)
	if err != nil {
		return err
	}
	return w.sc.sendReply(reply)
}

func (w *replyWriter) WriteError(err error) error {
	var verr varlink.Error
	if ve, ok := err.(varlink.Error); ok {
		verr = ve
	} else {
		verr = varlink.NewError(err.Error())
	}

	params, merr := marshalErrorParams(verr)
	if merr != nil {
		return merr
	}
	return w.sc.sendReply(varlink.Reply{Error: verr.ErrorCode(), Parameters: params})
}

// ServeMux dispatches incoming calls to registered handlers by method
// name glob, and serves the well-known org.varlink.service
// introspection methods itself.
//
// Grounded in the teacher's ServeMux (mux.go), adapted to run over the
// sans-IO Server's decoded ServerEvent stream via Serve instead of a
// Session.
type ServeMux struct {
	patterns     []string
	handlers     map[string]MethodHandler
	descriptions map[string]string
	info         service.Info
}

// Handle registers handler for every method name matching pattern, a
// path.Match glob (e.g. "org.example.*").
func (mux *ServeMux) Handle(pattern string, handler MethodHandler) {
	if _, err := path.Match(pattern, ""); err != nil {
		panic(err)
	}

	mux.patterns = append(mux.patterns, pattern)
	slices.Sort(mux.patterns)
	if mux.handlers == nil {
		mux.handlers = make(map[string]MethodHandler)
	}
	mux.handlers[pattern] = handler
}

// HandleFunc registers handler for every method name matching pattern.
func (mux *ServeMux) HandleFunc(pattern string, handler HandlerFunc) {
	mux.Handle(pattern, handler)
}

// SetDescription sets the Varlink IDL description returned by
// GetInterfaceDescription for intf. Parsing is not performed here
// (the idl package owns the grammar); callers that want assurance the
// description is well-formed should parse it with idl.Parse first.
func (mux *ServeMux) SetDescription(intf string, desc string) {
	if mux.descriptions == nil {
		mux.descriptions = make(map[string]string)
	}
	mux.descriptions[intf] = desc
}

// SetInfo overrides the service information returned by GetInfo.
// Leaving a field empty falls back to a value derived from the
// program's build information, if available.
func (mux *ServeMux) SetInfo(vendor, product, version, url string) {
	mux.info = service.Info{Vendor: vendor, Product: product, Version: version, URL: url}
}

// ServeMethod implements MethodHandler, dispatching call to the
// handler registered for the first pattern (in lexical order) that
// matches its method name, or to the built-in introspection methods.
func (mux *ServeMux) ServeMethod(w ReplyWriter, call *varlink.Call) {
	switch call.Method {
	case service.InterfaceName + ".GetInfo":
		info := mux.info
		info.Interfaces = append(make([]string, 0, len(mux.descriptions)+1), service.InterfaceName)
		for intf := range mux.descriptions {
			info.Interfaces = append(info.Interfaces, intf)
		}
		slices.Sort(info.Interfaces)
		info.Interfaces = slices.Compact(info.Interfaces)

		if binfo, ok := debug.ReadBuildInfo(); ok {
			if info.Vendor == "" {
				info.Vendor, _, _ = strings.Cut(binfo.Main.Path, "/")
			}
			if info.Product == "" {
				parts := strings.Split(binfo.Path, "/")
				info.Product = parts[len(parts)-1] + " @ " + binfo.Main.Path
			}
			if info.Version == "" {
				info.Version = fmt.Sprintf("%v (%v)", binfo.Main.Version, binfo.GoVersion)
			}
			if info.URL == "" {
				host, _, _ := strings.Cut(binfo.Main.Path, "/")
				info.URL = "https://" + host
			}
		}
		w.WriteReply(info)
		return

	case service.InterfaceName + ".GetInterfaceDescription":
		var in service.GetInterfaceDescriptionArgs
		call.Unmarshal(&in)

		desc, ok := mux.descriptions[in.Interface]
		if !ok {
			w.WriteError(service.InterfaceNotFound(in.Interface))
			return
		}
		w.WriteReply(service.GetInterfaceDescriptionReply{Description: desc})
		return
	}

	for _, pattern := range mux.patterns {
		if matched, _ := path.Match(pattern, call.Method); matched {
			mux.handlers[pattern].ServeMethod(w, call)
			return
		}
	}
	w.WriteError(service.MethodNotFound(call.Method))
}

// ServerConn drives a sans-IO varlink.Server against a live net.Conn,
// dispatching each request it decodes to handler.
//
// Grounded in the teacher's Session plus server.go's ServeConn,
// likewise simplified: the engine already refuses to decode a new
// request while one is pending, so there's no replyWriter mutex or
// "replied" bookkeeping left for this type to do.
type ServerConn struct {
	conn    net.Conn
	engine  *varlink.Server
	readBuf []byte
	rfds    []uintptr
}

// NewServerConn wraps conn with a fresh varlink.Server.
func NewServerConn(conn net.Conn) *ServerConn {
	return &ServerConn{
		conn:    conn,
		engine:  varlink.NewServer(),
		readBuf: make([]byte, readBufferSize),
	}
}

// Serve reads requests off the connection until it is closed or a
// protocol error occurs, dispatching each to handler.
func (sc *ServerConn) Serve(handler MethodHandler) error {
	for {
		if err := sc.transmit(); err != nil {
			return err
		}

		ev, ok := sc.engine.PollEvent()
		if !ok {
			if err := sc.fill(); err != nil {
				return err
			}
			continue
		}

		switch ev.Kind {
		case varlink.ServerEventProtocolError:
			return ev.Err

		case varlink.ServerEventRequest:
			call := varlink.Call{
				Method:          ev.Request.Method,
				OneWay:          ev.Request.OneWay,
				More:            ev.Request.More,
				Upgrade:         ev.Request.Upgrade,
				Parameters:      ev.Request.Parameters,
				FileDescriptors: sc.takeFds(),
			}
			handler.ServeMethod(&replyWriter{sc: sc}, &call)

			if call.Upgrade {
				if err := sc.transmit(); err != nil {
					return err
				}
				return nil
			}
		}
	}
}

// TakeUpgrade returns the trailing bytes read past the final frame of
// an upgraded connection's call, which belong to whatever protocol the
// connection upgraded to. Call it after Serve returns nil following an
// upgrade reply.
func (sc *ServerConn) TakeUpgrade() []byte {
	return sc.engine.TakeUpgrade()
}

func (sc *ServerConn) sendReply(reply varlink.Reply) error {
	if len(reply.FileDescriptors) > 0 {
		fp, ok := sc.conn.(FdPasser)
		if !ok {
			return ErrFdPassingNotSupported
		}
		fp.PassFds(reply.FileDescriptors...)
	}
	if err := sc.engine.SendReply(reply.ToReply()); err != nil {
		return err
	}
	return sc.transmit()
}

func (sc *ServerConn) transmit() error {
	for {
		t, ok := sc.engine.PollTransmit()
		if !ok {
			return nil
		}
		if _, err := sc.conn.Write(t.Bytes); err != nil {
			return err
		}
	}
}

func (sc *ServerConn) fill() error {
	n, err := sc.conn.Read(sc.readBuf)
	if n > 0 {
		if fp, ok := sc.conn.(FdPasser); ok {
			sc.rfds = append(sc.rfds, fp.CollectFds()...)
		}
		if herr := sc.engine.HandleInput(sc.readBuf[:n]); herr != nil {
			return herr
		}
	}
	if err == io.EOF {
		return ErrDisconnected
	}
	return err
}

func (sc *ServerConn) takeFds() []uintptr {
	fds := sc.rfds
	sc.rfds = nil
	return fds
}

// Close closes the underlying connection.
func (sc *ServerConn) Close() error {
	sc.engine.Close()
	return sc.conn.Close()
}

func marshalErrorParams(err varlink.Error) ([]byte, error) {
	type jsonMarshaler interface {
		MarshalJSON() ([]byte, error)
	}
	if jm, ok := err.(jsonMarshaler); ok {
		return jm.MarshalJSON()
	}
	return []byte("{}"), nil
}
