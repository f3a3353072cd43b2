// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"errors"
	"fmt"
)

var (
	ErrClosed           = errors.New("rocketrpc: transport closed")
	ErrEmptyPath        = errors.New("rocketrpc: cannot call the root handle")
	ErrDuplicateID      = errors.New("rocketrpc: correlation id already in flight")
	ErrUnknownTransport = errors.New("rocketrpc: unknown transport")
	ErrInvalidFrame     = errors.New("rocketrpc: invalid frame")
	ErrNotCallable      = errors.New("rocketrpc: unsupported api field")
	ErrReservedMember   = errors.New("rocketrpc: reserved member in procedure path")
)

// RemoteError is the failure reported by the executor for one call.
type RemoteError struct {
	ID      string
	Path    string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ServerError: %s", e.Message)
}

// IsRemote reports whether err came from the remote executor.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
