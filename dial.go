// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"fmt"
	"strings"
)

// Dial connects to endpoint and returns the client facade. The endpoint scheme
// picks the transport ("zap://host:port", "grpc://host:port", "http://host/rpc",
// ...); a bare "host:port" uses ZAP and an empty endpoint uses DefaultEndpoint.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	t, err := DialTransport(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(t, opts...), nil
}

// DialTransport connects the transport for endpoint without wrapping it in a Client.
func DialTransport(ctx context.Context, endpoint string, opts ...Option) (Transport, error) {
	scheme, addr := splitEndpoint(endpoint)
	entry, ok := lookupTransport(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, scheme)
	}
	t, err := entry.dial(ctx, addr, NewOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return t, nil
}

// Listen opens the executor side of endpoint.
func Listen(ctx context.Context, endpoint string, opts ...Option) (Listener, error) {
	scheme, addr := splitEndpoint(endpoint)
	entry, ok := lookupTransport(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, scheme)
	}
	if entry.listen == nil {
		return nil, fmt.Errorf("%w: %s has no listener", ErrUnknownTransport, scheme)
	}
	l, err := entry.listen(ctx, addr, NewOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", endpoint, err)
	}
	return l, nil
}

// splitEndpoint returns the scheme and the address handed to the transport.
// http and https keep the full URL.
func splitEndpoint(endpoint string) (scheme, addr string) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	scheme, rest, ok := strings.Cut(endpoint, "://")
	if !ok {
		return SchemeZAP, endpoint
	}
	scheme = strings.ToLower(scheme)
	switch scheme {
	case SchemeHTTP, SchemeHTTPS:
		return scheme, scheme + "://" + rest
	}
	return scheme, rest
}
