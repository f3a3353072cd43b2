// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.lsp.dev/jsonrpc2"
)

func init() {
	RegisterTransport(SchemeJSONRPC, dialJSONRPC, listenJSONRPC)
}

// JSONRPCConn sends each event as a JSON-RPC 2.0 notification whose method is
// the event name. Payloads must therefore be JSON, which the default codec
// guarantees.
type JSONRPCConn struct {
	eventMux
	conn     jsonrpc2.Conn
	endpoint string
	start    sync.Once
}

// NewJSONRPCConn wraps nc in a jsonrpc2 connection. Reading starts with the
// first registered handler.
func NewJSONRPCConn(nc net.Conn) *JSONRPCConn {
	return &JSONRPCConn{
		conn:     jsonrpc2.NewConn(jsonrpc2.NewStream(nc)),
		endpoint: SchemeJSONRPC + "://" + nc.RemoteAddr().String(),
	}
}

func dialJSONRPC(ctx context.Context, addr string, _ *Options) (Transport, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc dial: %w", err)
	}
	return NewJSONRPCConn(nc), nil
}

func listenJSONRPC(_ context.Context, addr string, _ *Options) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newNetListener(l, SchemeJSONRPC, func(c net.Conn) Transport { return NewJSONRPCConn(c) }), nil
}

func (j *JSONRPCConn) On(event string, handler EventHandler) {
	j.eventMux.On(event, handler)
	j.start.Do(func() { j.conn.Go(context.Background(), j.handle) })
}

func (j *JSONRPCConn) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if !j.dispatch(req.Method(), req.Params()) {
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
	return reply(ctx, nil, nil)
}

func (j *JSONRPCConn) Emit(ctx context.Context, event string, payload []byte) error {
	select {
	case <-j.conn.Done():
		return ErrClosed
	default:
	}
	if err := j.conn.Notify(ctx, event, json.RawMessage(payload)); err != nil {
		return fmt.Errorf("jsonrpc notify: %w", err)
	}
	return nil
}

// Done is closed when the underlying connection stops.
func (j *JSONRPCConn) Done() <-chan struct{} {
	return j.conn.Done()
}

func (j *JSONRPCConn) Endpoint() string {
	return j.endpoint
}

func (j *JSONRPCConn) Close() error {
	return j.conn.Close()
}
