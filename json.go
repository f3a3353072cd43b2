// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

func init() {
	RegisterTransport(SchemeHTTP, dialHTTP, nil)
	RegisterTransport(SchemeHTTPS, dialHTTP, nil)
}

// newHTTPClient creates a fresh HTTP client with disabled connection reuse.
// This avoids EOF errors that can occur with connection pooling in complex
// process hierarchies.
func newHTTPClient(o *Options) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
			TLSClientConfig:   o.tlsConfig,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") {
		return true
	}
	return false
}

// SendJSONRequest posts one JSON-RPC 2.0 request to uri and decodes the
// result into reply, retrying transient connection errors with backoff.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...Option,
) error {
	return sendJSONRequest(ctx, uri, method, params, reply, NewOptions(options))
}

func sendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	ops *Options,
) error {
	log := ops.logger
	log.Debug("json-rpc request", zap.String("method", method), zap.String("uri", uri.String()))
	requestBodyBytes, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	target := *uri
	if len(ops.queryParams) > 0 {
		target.RawQuery = ops.queryParams.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < ops.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff from the base wait
			waitTime := ops.retryWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// Create fresh request for each attempt (body buffer is consumed)
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			target.String(),
			bytes.NewBuffer(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		client := newHTTPClient(ops)
		resp, err := client.Do(request)
		if err != nil {
			lastErr = err
			log.Warn("json-rpc request attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Bool("retryable", isRetryableError(err)),
				zap.Error(err),
			)
			if isRetryableError(err) {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}
		if attempt > 0 {
			log.Info("json-rpc request succeeded after retry", zap.Int("attempt", attempt+1))
		}

		// Return an error for any non successful status code
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			CleanlyCloseBody(resp.Body)
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		}

		if err := rpc.DecodeClientResponse(resp.Body, reply); err != nil {
			CleanlyCloseBody(resp.Body)
			if errors.Is(err, rpc.ErrNullResult) {
				return nil
			}
			var rpcErr *rpc.Error
			if errors.As(err, &rpcErr) {
				return rpcErr
			}
			return fmt.Errorf("failed to decode client response: %w", err)
		}
		CleanlyCloseBody(resp.Body)
		return nil
	}

	return fmt.Errorf("failed to issue request after %d retries: %w", ops.retries, lastErr)
}

// httpTransport turns every function-call event into a JSON-RPC POST and
// re-emits the answer locally as a function-response event.
type httpTransport struct {
	eventMux
	uri    *url.URL
	ops    *Options
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func dialHTTP(_ context.Context, addr string, o *Options) (Transport, error) {
	uri, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &httpTransport{uri: uri, ops: o, ctx: ctx, cancel: cancel}, nil
}

func (h *httpTransport) Emit(ctx context.Context, event string, payload []byte) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if event != EventFunctionCall {
		return fmt.Errorf("http transport cannot emit %q", event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var d RawDescriptor
	if err := json.Unmarshal(payload, &d); err != nil {
		return fmt.Errorf("http transport: %w", err)
	}
	go h.roundTrip(d)
	return nil
}

func (h *httpTransport) roundTrip(d RawDescriptor) {
	resp := Response{ID: d.ID, Status: StatusOK}
	var result json.RawMessage
	if err := sendJSONRequest(h.ctx, h.uri, d.ProcedurePath, d.Params, &result, h.ops); err != nil {
		resp.Status, resp.Error = statusFromJSONError(err)
	} else {
		resp.Result = result
	}
	if h.closed.Load() {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		h.ops.logger.Error("http transport: encode response", zap.String("id", d.ID), zap.Error(err))
		return
	}
	h.dispatch(EventFunctionResponse, payload)
}

func statusFromJSONError(err error) (int, string) {
	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) {
		return StatusUnavailable, err.Error()
	}
	switch rpcErr.Code {
	case rpc.E_NO_METHOD:
		return StatusNotFound, rpcErr.Message
	case rpc.E_BAD_PARAMS, rpc.E_INVALID_REQ, rpc.E_PARSE:
		return StatusBadRequest, rpcErr.Message
	default:
		return StatusError, rpcErr.Message
	}
}

func (h *httpTransport) Endpoint() string {
	return h.uri.String()
}

func (h *httpTransport) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.cancel()
	return nil
}
