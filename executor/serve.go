// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"

	"github.com/luxfi/rocketrpc"
)

// Attach answers every function-call event arriving on t. Calls run on their
// own goroutines, so responses may leave in any order.
func (e *Executor) Attach(ctx context.Context, t rocketrpc.Transport) {
	t.On(rocketrpc.EventFunctionCall, func(payload []byte) {
		var d rocketrpc.RawDescriptor
		if err := json.Unmarshal(payload, &d); err != nil {
			e.log.Error("function-call dropped: malformed payload", zap.Error(err))
			return
		}
		go e.answer(ctx, t, d)
	})
}

func (e *Executor) answer(ctx context.Context, t rocketrpc.Transport, d rocketrpc.RawDescriptor) {
	resp := e.respond(ctx, d)
	payload, err := json.Marshal(resp)
	if err != nil {
		resp = rocketrpc.Response{
			ID:     d.ID,
			Status: rocketrpc.StatusError,
			Error:  fmt.Sprintf("encode result: %v", err),
		}
		payload, _ = json.Marshal(resp)
	}
	if err := t.Emit(ctx, rocketrpc.EventFunctionResponse, payload); err != nil {
		e.log.Warn("function-response not sent", zap.String("id", d.ID), zap.Error(err))
	}
}

// respond runs d and builds its response.
func (e *Executor) respond(ctx context.Context, d rocketrpc.RawDescriptor) rocketrpc.Response {
	e.log.Debug("function-call", zap.String("id", d.ID), zap.String("path", d.ProcedurePath))
	result, status, err := e.Invoke(ctx, d.ProcedurePath, d.Params)
	if err != nil {
		return rocketrpc.Response{ID: d.ID, Status: status, Error: err.Error(), Result: json.RawMessage("null")}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return rocketrpc.Response{ID: d.ID, Status: rocketrpc.StatusError, Error: fmt.Sprintf("encode result: %v", err), Result: json.RawMessage("null")}
	}
	return rocketrpc.Response{ID: d.ID, Status: status, Result: raw}
}

// Serve attaches every transport accepted from l until ctx is done or l fails.
func (e *Executor) Serve(ctx context.Context, l rocketrpc.Listener) error {
	for {
		t, err := l.Accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, rocketrpc.ErrClosed) {
				return nil
			}
			return err
		}
		e.log.Info("client attached", zap.String("endpoint", t.Endpoint()))
		e.Attach(ctx, t)
	}
}

// HTTPHandler serves procedures as JSON-RPC 2.0 over HTTP POST, the
// counterpart of the http transport.
func (e *Executor) HTTPHandler() http.Handler {
	codec := rpc.NewCodec()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "rocketrpc: POST only", http.StatusMethodNotAllowed)
			return
		}
		req := codec.NewRequest(r)
		method, err := req.Method()
		if err != nil {
			req.WriteError(w, http.StatusBadRequest, &rpc.Error{Code: rpc.E_INVALID_REQ, Message: err.Error()})
			return
		}
		var params []json.RawMessage
		if err := req.ReadRequest(&params); err != nil {
			req.WriteError(w, http.StatusBadRequest, &rpc.Error{Code: rpc.E_BAD_PARAMS, Message: err.Error()})
			return
		}

		result, status, err := e.Invoke(r.Context(), method, params)
		if err != nil {
			req.WriteError(w, status, &rpc.Error{Code: errorCode(status), Message: err.Error()})
			return
		}
		req.WriteResponse(w, result)
	})
}

func errorCode(status int) rpc.ErrorCode {
	switch status {
	case rocketrpc.StatusNotFound:
		return rpc.E_NO_METHOD
	case rocketrpc.StatusBadRequest:
		return rpc.E_BAD_PARAMS
	default:
		return rpc.E_SERVER
	}
}
