// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SocketMember is the one member name that is not a path segment: at any
// depth it yields the client's transport.
const SocketMember = "socket"

// Handle addresses a node of the remote API. Handles are values; every step
// returns a new handle one level deeper and never changes the receiver.
type Handle struct {
	path   string
	bridge *Bridge
}

// ProcedurePath returns the dotted path accumulated so far.
func (h Handle) ProcedurePath() string {
	return h.path
}

// Socket returns the transport shared by the client, or nil for a handle not
// obtained from Dial or NewClient.
func (h Handle) Socket() Transport {
	if h.bridge == nil {
		return nil
	}
	return h.bridge.transport
}

// Member is the dynamic accessor: it returns the Transport for SocketMember
// and a deeper Handle for every other name.
func (h Handle) Member(name string) any {
	if name == SocketMember {
		return h.Socket()
	}
	return Handle{path: JoinPath(h.path, name), bridge: h.bridge}
}

// Get returns the handle for member name. It panics on SocketMember; use
// Socket or Member for that name.
func (h Handle) Get(name string) Handle {
	if name == SocketMember {
		panic("rocketrpc: Get(" + SocketMember + ") is reserved, use Socket")
	}
	return Handle{path: JoinPath(h.path, name), bridge: h.bridge}
}

// Path walks a dotted path, one Get per segment.
func (h Handle) Path(dotted string) Handle {
	for _, name := range strings.Split(dotted, ".") {
		h = h.Get(name)
	}
	return h
}

// Resolve is Path for untrusted input: it returns ErrReservedMember instead of
// panicking when a segment is SocketMember.
func (h Handle) Resolve(dotted string) (Handle, error) {
	for _, name := range strings.Split(dotted, ".") {
		if name == SocketMember {
			return Handle{}, fmt.Errorf("%w: %q in %q", ErrReservedMember, name, dotted)
		}
	}
	return h.Path(dotted), nil
}

// Go invokes the procedure at this path and returns the pending call.
// Arguments are passed through unchecked; the executor validates them.
// A zero Handle has no bridge and fails with ErrClosed.
func (h Handle) Go(ctx context.Context, args ...any) *Call {
	if h.bridge == nil {
		d := Descriptor{ProcedurePath: h.path, Params: append([]any{}, args...)}
		return failedCall(d, defaultCodec, ErrClosed)
	}
	params := append([]any{}, args...)
	d := h.bridge.NewDescriptor(h.path, params)
	h.bridge.log.Info("rpc call",
		zap.String("path", h.path),
		zap.String("id", d.ID),
		zap.Any("params", params),
	)
	if h.path == "" {
		return failedCall(d, h.bridge.codec, ErrEmptyPath)
	}
	return h.bridge.Dispatch(ctx, d)
}

// Call invokes the procedure, waits for it and decodes the result into reply.
// reply may be nil.
func (h Handle) Call(ctx context.Context, reply any, args ...any) error {
	return h.Go(ctx, args...).Decode(ctx, reply)
}

func (h Handle) String() string {
	return fmt.Sprintf("rocketrpc.Handle(%q)", h.path)
}
