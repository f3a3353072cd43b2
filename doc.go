// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rocketrpc is a shape-agnostic RPC client. A Client is the root of
// an unbounded tree of procedure paths: walking it with Get, Path or Member
// builds a dotted path, and invoking a path sends a function-call event to the
// remote executor and returns a pending Call that settles when the matching
// function-response event arrives.
//
// # Usage
//
//	client, err := rocketrpc.Dial(ctx, "zap://localhost:9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Pending call, settles later
//	call := client.Get("math").Get("add").Go(ctx, 2, 3)
//	var sum int
//	err = call.Decode(ctx, &sum)
//
//	// One-shot typed call
//	sum, err = rocketrpc.Invoke[int](ctx, client.Path("math.add"), 2, 3)
//
// A struct of function fields can stand in for the remote API; see Bind.
//
// # Transports
//
// The endpoint scheme selects the transport:
//
//	mem://name           in-process, for tests and embedding
//	zap://host:port      length-prefixed event frames over TCP (default for bare host:port)
//	jsonrpc://host:port  events as JSON-RPC 2.0 notifications
//	grpc://host:port     gRPC bidirectional stream
//	http(s)://host/path  one JSON-RPC 2.0 POST per call
//
// Every transport carries the same two events. Descriptors and responses are
// matched by correlation id only, so responses may arrive in any order.
//
// # Architecture
//
//   - handle.go: Handle, the path accumulator and invocation entry point
//   - bridge.go, registry.go, call.go: dispatch and response correlation
//   - typed.go: Bind and Invoke, the typed layer over Handle
//   - transport.go, dial.go: Transport contract and scheme registry
//   - mem.go, zap.go, jsonrpc.go, grpc.go, json.go: transports
//
// The executor package is the remote side.
package rocketrpc
