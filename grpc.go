// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/peer"
)

const (
	grpcServiceName = "rocketrpc.Events"
	grpcStreamName  = "Stream"
	grpcMethod      = "/" + grpcServiceName + "/" + grpcStreamName
	grpcCodecName   = "rocketrpc-json"
)

func init() {
	encoding.RegisterCodec(grpcCodec{})
	RegisterTransport(SchemeGRPC, dialGRPC, listenGRPC)
}

// grpcEvent is the message exchanged on the bidi stream.
type grpcEvent struct {
	Name    string `json:"name"`
	Payload []byte `json:"payload"`
}

// grpcCodec lets the stream carry grpcEvent without generated protobuf types.
type grpcCodec struct{}

func (grpcCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (grpcCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (grpcCodec) Name() string                       { return grpcCodecName }

var grpcStreamDesc = grpc.StreamDesc{
	StreamName:    grpcStreamName,
	ServerStreams: true,
	ClientStreams: true,
}

// grpcStream is the part of grpc.ClientStream and grpc.ServerStream used here.
type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// grpcTransport carries events over one bidi stream, on either side.
type grpcTransport struct {
	eventMux
	stream   grpcStream
	endpoint string
	sendMu   sync.Mutex
	start    sync.Once
	closed   atomic.Bool
	closing  chan struct{}
	recvDone chan struct{}
	release  func() error
}

func newGRPCTransport(stream grpcStream, endpoint string, release func() error) *grpcTransport {
	return &grpcTransport{
		stream:   stream,
		endpoint: endpoint,
		closing:  make(chan struct{}),
		recvDone: make(chan struct{}),
		release:  release,
	}
}

func dialGRPC(ctx context.Context, addr string, o *Options) (Transport, error) {
	creds := insecure.NewCredentials()
	if o.tlsConfig != nil {
		creds = credentials.NewTLS(o.tlsConfig)
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}

	// The stream outlives ctx, which only bounds connection setup.
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	stream, err := conn.NewStream(streamCtx, &grpcStreamDesc, grpcMethod,
		grpc.CallContentSubtype(grpcCodecName),
		grpc.WaitForReady(true),
	)
	if !stop() {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("grpc stream: %w", ctx.Err())
	}
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("grpc stream: %w", err)
	}

	return newGRPCTransport(stream, SchemeGRPC+"://"+addr, func() error {
		cancel()
		return conn.Close()
	}), nil
}

func (g *grpcTransport) On(event string, handler EventHandler) {
	g.eventMux.On(event, handler)
	g.start.Do(func() { go g.recvLoop() })
}

func (g *grpcTransport) recvLoop() {
	defer close(g.recvDone)
	for {
		var ev grpcEvent
		if err := g.stream.RecvMsg(&ev); err != nil {
			return
		}
		g.dispatch(ev.Name, ev.Payload)
	}
}

func (g *grpcTransport) Emit(ctx context.Context, event string, payload []byte) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	if err := g.stream.SendMsg(&grpcEvent{Name: event, Payload: payload}); err != nil {
		return fmt.Errorf("grpc send: %w", err)
	}
	return nil
}

func (g *grpcTransport) Endpoint() string {
	return g.endpoint
}

func (g *grpcTransport) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	close(g.closing)
	if g.release != nil {
		return g.release()
	}
	return nil
}

// grpcListener serves the event stream and hands each client stream to Accept.
type grpcListener struct {
	server   *grpc.Server
	listener net.Listener
	conns    chan Transport
	done     chan struct{}
	closed   atomic.Bool
}

func listenGRPC(_ context.Context, addr string, o *Options) (Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	var serverOpts []grpc.ServerOption
	if o.tlsConfig != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(o.tlsConfig)))
	}
	gl := &grpcListener{
		server:   grpc.NewServer(serverOpts...),
		listener: lis,
		conns:    make(chan Transport),
		done:     make(chan struct{}),
	}
	gl.server.RegisterService(&grpc.ServiceDesc{
		ServiceName: grpcServiceName,
		HandlerType: (*interface{})(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    grpcStreamName,
			Handler:       gl.handleStream,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, gl)
	go gl.server.Serve(lis)
	return gl, nil
}

// handleStream blocks for the life of the stream; returning ends it.
func (gl *grpcListener) handleStream(_ any, stream grpc.ServerStream) error {
	endpoint := SchemeGRPC + "://"
	if p, ok := peer.FromContext(stream.Context()); ok {
		endpoint += p.Addr.String()
	}
	t := newGRPCTransport(stream, endpoint, nil)

	select {
	case gl.conns <- t:
	case <-gl.done:
		return ErrClosed
	case <-stream.Context().Done():
		return stream.Context().Err()
	}

	select {
	case <-t.closing:
	case <-stream.Context().Done():
	}
	return nil
}

func (gl *grpcListener) Accept(ctx context.Context) (Transport, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-gl.done:
		return nil, ErrClosed
	case t := <-gl.conns:
		return t, nil
	}
}

func (gl *grpcListener) Addr() string {
	return SchemeGRPC + "://" + gl.listener.Addr().String()
}

func (gl *grpcListener) Close() error {
	if gl.closed.Swap(true) {
		return nil
	}
	close(gl.done)
	gl.server.Stop()
	return nil
}
