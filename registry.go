// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import "sync"

// registry maps in-flight correlation ids to their pending calls.
// Take is the only way out, so each entry is settled at most once.
type registry struct {
	mu      sync.Mutex
	pending map[string]*Call
}

func newRegistry() *registry {
	return &registry{pending: make(map[string]*Call)}
}

// insert fails if id is already in flight.
func (r *registry) insert(id string, c *Call) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; ok {
		return false
	}
	r.pending[id] = c
	return true
}

// Take removes and returns the call registered under id.
func (r *registry) Take(id string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return c, ok
}

func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
