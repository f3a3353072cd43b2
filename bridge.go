// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Bridge owns the transport of one client, sends call descriptors over it
// and settles pending calls as responses come back.
type Bridge struct {
	transport Transport
	pending   *registry
	codec     Codec
	ids       IDGenerator
	log       *zap.Logger
}

// NewBridge attaches a bridge to t and starts listening for responses.
func NewBridge(t Transport, opts ...Option) *Bridge {
	o := NewOptions(opts)
	b := &Bridge{
		transport: t,
		pending:   newRegistry(),
		codec:     o.codec,
		ids:       o.ids,
		log:       o.logger,
	}
	t.On(EventFunctionResponse, b.onResponse)
	return b
}

// Transport returns the transport the bridge sends on.
func (b *Bridge) Transport() Transport {
	return b.transport
}

// Pending returns the number of calls still waiting for a response.
func (b *Bridge) Pending() int {
	return b.pending.Len()
}

// NewDescriptor builds a descriptor with a fresh correlation id.
func (b *Bridge) NewDescriptor(path string, params []any) Descriptor {
	if params == nil {
		params = []any{}
	}
	return Descriptor{
		ID:            b.ids.NextID(path, params),
		ProcedurePath: path,
		Params:        params,
	}
}

// Dispatch registers d and sends it as a function-call event. The returned
// call is already failed if d cannot be encoded or sent.
func (b *Bridge) Dispatch(ctx context.Context, d Descriptor) *Call {
	payload, err := b.codec.Encode(d)
	if err != nil {
		return failedCall(d, b.codec, fmt.Errorf("encode %s params: %w", d.ProcedurePath, err))
	}

	call := newCall(d, b.codec)
	if !b.pending.insert(d.ID, call) {
		return failedCall(d, b.codec, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID))
	}

	if err := b.transport.Emit(ctx, EventFunctionCall, payload); err != nil {
		if c, ok := b.pending.Take(d.ID); ok {
			c.settle(nil, fmt.Errorf("send %s: %w", d.ProcedurePath, err))
		}
	}
	return call
}

func (b *Bridge) onResponse(payload []byte) {
	var resp Response
	if err := b.codec.Decode(payload, &resp); err != nil {
		b.log.Error("rpc response dropped: malformed payload", zap.Error(err))
		return
	}

	call, ok := b.pending.Take(resp.ID)
	if !ok {
		b.log.Warn("rpc response dropped: no pending call", zap.String("id", resp.ID), zap.Int("status", resp.Status))
		return
	}

	if resp.Failed() {
		call.settle(nil, &RemoteError{
			ID:      resp.ID,
			Path:    call.ProcedurePath,
			Status:  resp.Status,
			Message: resp.Error,
		})
		return
	}
	call.settle(resp.Result, nil)
}
