// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

// IDGenerator produces correlation ids for outgoing calls.
type IDGenerator interface {
	NextID(path string, params []any) string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func(path string, params []any) string

func (f IDGeneratorFunc) NextID(path string, params []any) string {
	return f(path, params)
}

// SequenceIDs yields "<unix-ms>-<seq>-<path>". The sequence makes ids unique
// for the lifetime of the generator even for identical calls in the same millisecond.
type SequenceIDs struct {
	seq atomic.Uint64
	now func() time.Time
}

func (g *SequenceIDs) NextID(path string, _ []any) string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	n := g.seq.Add(1)
	return strconv.FormatInt(now().UnixMilli(), 10) + "-" + strconv.FormatUint(n, 10) + "-" + path
}

// TimestampIDs yields "<unix-ms>-<path>-<json params>". Two identical calls
// within one millisecond produce the same id; the bridge rejects the second
// with ErrDuplicateID while the first is still pending.
type TimestampIDs struct {
	now func() time.Time
}

func (g TimestampIDs) NextID(path string, params []any) string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	args, err := json.Marshal(params)
	if err != nil {
		args = []byte("[]")
	}
	return strconv.FormatInt(now().UnixMilli(), 10) + "-" + path + "-" + string(args)
}
