// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import "encoding/json"

// Event names carried by every transport.
const (
	EventFunctionCall     = "function-call"
	EventFunctionResponse = "function-response"
)

// Status codes used in Response.Status. Anything above StatusOK is a failure.
const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusNotFound   = 404
	StatusError      = 500

	// StatusUnavailable is reported by the http transport when a request
	// never produced a JSON-RPC answer.
	StatusUnavailable = 503
)

// Descriptor is a single procedure call as sent to the remote executor.
type Descriptor struct {
	ID            string `json:"id"`
	ProcedurePath string `json:"procedurePath"`
	Params        []any  `json:"params"`
}

// RawDescriptor is a Descriptor as seen by the receiving side, with
// parameters left encoded until their target types are known.
type RawDescriptor struct {
	ID            string            `json:"id"`
	ProcedurePath string            `json:"procedurePath"`
	Params        []json.RawMessage `json:"params"`
}

// Response is the executor's answer to one Descriptor, matched by ID.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Status int             `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether the response carries a failure status.
func (r *Response) Failed() bool {
	return r.Status > StatusOK
}

// JoinPath appends member to a procedure path.
func JoinPath(path, member string) string {
	if path == "" {
		return member
	}
	return path + "." + member
}
