// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// fakeTransport records emitted events and lets tests push responses.
// When reply is set, every function-call is answered asynchronously.
type fakeTransport struct {
	eventMux
	mu      sync.Mutex
	sent    []RawDescriptor
	emitErr error
	reply   func(RawDescriptor) Response
}

func (f *fakeTransport) Emit(_ context.Context, event string, payload []byte) error {
	if f.emitErr != nil {
		return f.emitErr
	}
	var d RawDescriptor
	if err := json.Unmarshal(payload, &d); err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, d)
	f.mu.Unlock()
	if f.reply != nil && event == EventFunctionCall {
		resp := f.reply(d)
		go f.push(resp)
	}
	return nil
}

func (f *fakeTransport) Endpoint() string { return "fake://test" }
func (f *fakeTransport) Close() error     { return nil }

func (f *fakeTransport) push(resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	f.dispatch(EventFunctionResponse, payload)
}

func (f *fakeTransport) descriptors() []RawDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RawDescriptor(nil), f.sent...)
}

func (f *fakeTransport) last(t *testing.T) RawDescriptor {
	t.Helper()
	ds := f.descriptors()
	if len(ds) == 0 {
		t.Fatalf("no descriptor sent")
	}
	return ds[len(ds)-1]
}

func newFakeClient(opts ...Option) (*Client, *fakeTransport) {
	f := &fakeTransport{}
	return NewClient(f, opts...), f
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
