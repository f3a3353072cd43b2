// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Transport is the duplex event channel between a client and the remote executor.
// Connection lifecycle belongs to the transport.
type Transport interface {
	io.Closer

	// Emit sends one event.
	Emit(ctx context.Context, event string, payload []byte) error

	// On registers handler for an inbound event. Handlers may run on the
	// transport's own goroutine and must not block.
	On(event string, handler EventHandler)

	// Endpoint returns the address this transport is connected to.
	Endpoint() string
}

// EventHandler receives an inbound event payload.
type EventHandler func(payload []byte)

// Listener accepts transports on the executor side.
type Listener interface {
	io.Closer
	Accept(ctx context.Context) (Transport, error)
	Addr() string
}

// Transport schemes
const (
	SchemeMem     = "mem"     // in-process
	SchemeZAP     = "zap"     // length-prefixed event frames over TCP
	SchemeTCP     = "tcp"     // alias of zap
	SchemeJSONRPC = "jsonrpc" // JSON-RPC 2.0 notifications over TCP
	SchemeGRPC    = "grpc"    // gRPC bidi stream
	SchemeHTTP    = "http"    // JSON-RPC 2.0 over HTTP POST
	SchemeHTTPS   = "https"
)

// DialFunc connects a client transport to addr.
type DialFunc func(ctx context.Context, addr string, o *Options) (Transport, error)

// ListenFunc opens an executor-side listener on addr.
type ListenFunc func(ctx context.Context, addr string, o *Options) (Listener, error)

type transportEntry struct {
	dial   DialFunc
	listen ListenFunc
}

var (
	transportsMu sync.RWMutex
	transports   = map[string]transportEntry{}
)

// RegisterTransport makes a scheme available to Dial and Listen. listen may be nil
// for client-only transports.
func RegisterTransport(scheme string, dial DialFunc, listen ListenFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[scheme] = transportEntry{dial, listen}
}

func lookupTransport(scheme string) (transportEntry, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	e, ok := transports[scheme]
	return e, ok
}

// AvailableTransports returns the registered schemes, sorted.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}

// eventMux fans inbound events out to registered handlers.
type eventMux struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

func (m *eventMux) On(event string, handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string][]EventHandler)
	}
	m.handlers[event] = append(m.handlers[event], handler)
}

// dispatch reports whether any handler was registered for event.
func (m *eventMux) dispatch(event string, payload []byte) bool {
	m.mu.RLock()
	hs := m.handlers[event]
	m.mu.RUnlock()
	for _, h := range hs {
		h(payload)
	}
	return len(hs) > 0
}
