// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

func init() {
	RegisterTransport(SchemeMem, dialMem, listenMem)
}

type memEvent struct {
	name    string
	payload []byte
}

// memTransport is one end of an in-process pipe. Events are delivered in
// order on the receiving end's own goroutine.
type memTransport struct {
	eventMux
	endpoint string
	peer     *memTransport
	inbox    chan memEvent
	done     chan struct{}
	closed   atomic.Bool
	start    sync.Once
	closeMu  sync.Once
}

// Pipe returns two connected in-process transports.
func Pipe(endpoint string) (client, server Transport) {
	c, s := newMemPair(endpoint)
	return c, s
}

func newMemPair(endpoint string) (*memTransport, *memTransport) {
	a := &memTransport{endpoint: endpoint, inbox: make(chan memEvent, 256), done: make(chan struct{})}
	b := &memTransport{endpoint: endpoint, inbox: make(chan memEvent, 256), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// On starts delivery with the first handler so that nothing sent before the
// receiving side is wired up is dropped.
func (m *memTransport) On(event string, handler EventHandler) {
	m.eventMux.On(event, handler)
	m.start.Do(func() { go m.loop() })
}

func (m *memTransport) loop() {
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.inbox:
			m.dispatch(ev.name, ev.payload)
		}
	}
}

func (m *memTransport) Emit(ctx context.Context, event string, payload []byte) error {
	if m.closed.Load() || m.peer.closed.Load() {
		return ErrClosed
	}
	ev := memEvent{name: event, payload: append([]byte(nil), payload...)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.peer.done:
		return ErrClosed
	case m.peer.inbox <- ev:
		return nil
	}
}

func (m *memTransport) Endpoint() string {
	return SchemeMem + "://" + m.endpoint
}

// Close shuts down both ends, like closing a connection.
func (m *memTransport) Close() error {
	m.shutdown()
	m.peer.shutdown()
	return nil
}

func (m *memTransport) shutdown() {
	m.closeMu.Do(func() {
		m.closed.Store(true)
		close(m.done)
	})
}

var (
	memListenersMu sync.Mutex
	memListeners   = map[string]*memListener{}
)

type memListener struct {
	name    string
	conns   chan *memTransport
	done    chan struct{}
	closeMu sync.Once
}

func listenMem(_ context.Context, name string, _ *Options) (Listener, error) {
	memListenersMu.Lock()
	defer memListenersMu.Unlock()
	if _, ok := memListeners[name]; ok {
		return nil, fmt.Errorf("mem endpoint %q already in use", name)
	}
	l := &memListener{name: name, conns: make(chan *memTransport), done: make(chan struct{})}
	memListeners[name] = l
	return l, nil
}

func dialMem(ctx context.Context, name string, _ *Options) (Transport, error) {
	memListenersMu.Lock()
	l, ok := memListeners[name]
	memListenersMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mem endpoint %q: no listener", name)
	}

	client, server := newMemPair(name)
	select {
	case <-ctx.Done():
		client.Close()
		server.Close()
		return nil, ctx.Err()
	case <-l.done:
		client.Close()
		server.Close()
		return nil, ErrClosed
	case l.conns <- server:
		return client, nil
	}
}

func (l *memListener) Accept(ctx context.Context) (Transport, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrClosed
	case t := <-l.conns:
		return t, nil
	}
}

func (l *memListener) Addr() string {
	return SchemeMem + "://" + l.name
}

func (l *memListener) Close() error {
	l.closeMu.Do(func() {
		close(l.done)
		memListenersMu.Lock()
		delete(memListeners, l.name)
		memListenersMu.Unlock()
	})
	return nil
}
