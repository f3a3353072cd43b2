// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Call is the pending result of one invocation. It settles exactly once,
// either with the remote result or with an error.
type Call struct {
	Descriptor

	codec  Codec
	once   sync.Once
	done   chan struct{}
	result json.RawMessage
	err    error
}

func newCall(d Descriptor, codec Codec) *Call {
	return &Call{
		Descriptor: d,
		codec:      codec,
		done:       make(chan struct{}),
	}
}

// failedCall returns a Call that is already settled with err.
func failedCall(d Descriptor, codec Codec, err error) *Call {
	c := newCall(d, codec)
	c.settle(nil, err)
	return c
}

// settle reports whether this invocation settled the call.
func (c *Call) settle(result json.RawMessage, err error) bool {
	settled := false
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
		settled = true
	})
	return settled
}

// Done is closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Settled reports whether a result or error has arrived.
func (c *Call) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Err returns the settlement error, or nil while the call is pending.
func (c *Call) Err() error {
	if !c.Settled() {
		return nil
	}
	return c.err
}

// Await blocks until the call settles or ctx is done. A done ctx stops the
// wait only; the call stays registered and can still settle later.
func (c *Call) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return c.result, c.err
	}
}

// Decode waits for the result and decodes it into v.
func (c *Call) Decode(ctx context.Context, v interface{}) error {
	result, err := c.Await(ctx)
	if err != nil {
		return err
	}
	if v == nil || len(result) == 0 {
		return nil
	}
	codec := c.codec
	if codec == nil {
		codec = defaultCodec
	}
	if err := codec.Decode(result, v); err != nil {
		return fmt.Errorf("decode result of %s: %w", c.ProcedurePath, err)
	}
	return nil
}
