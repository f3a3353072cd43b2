// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"errors"
	"testing"
)

func TestAvailableTransports(t *testing.T) {
	for _, scheme := range []string{SchemeMem, SchemeZAP, SchemeTCP, SchemeJSONRPC, SchemeGRPC, SchemeHTTP, SchemeHTTPS} {
		if !HasTransport(scheme) {
			t.Errorf("%s not registered", scheme)
		}
	}
	if HasTransport("carrier-pigeon") {
		t.Errorf("unexpected transport")
	}
	names := AvailableTransports()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("not sorted: %v", names)
		}
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		scheme   string
		addr     string
	}{
		{"", SchemeHTTP, "http://localhost:8080"},
		{"localhost:9000", SchemeZAP, "localhost:9000"},
		{"zap://10.0.0.1:9000", SchemeZAP, "10.0.0.1:9000"},
		{"GRPC://host:1", SchemeGRPC, "host:1"},
		{"jsonrpc://host:2", SchemeJSONRPC, "host:2"},
		{"https://api.example.com/rpc", SchemeHTTPS, "https://api.example.com/rpc"},
		{"mem://local", SchemeMem, "local"},
	}
	for _, tt := range tests {
		scheme, addr := splitEndpoint(tt.endpoint)
		if scheme != tt.scheme || addr != tt.addr {
			t.Errorf("splitEndpoint(%q) = %q, %q; want %q, %q", tt.endpoint, scheme, addr, tt.scheme, tt.addr)
		}
	}
}

func TestDialUnknownScheme(t *testing.T) {
	_, err := Dial(context.Background(), "carrier-pigeon://coop")
	if !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("got %v", err)
	}
	if _, err := Listen(context.Background(), "http://localhost:0"); !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("http listen: %v", err)
	}
}

func TestDialDefaultEndpoint(t *testing.T) {
	client, err := Dial(context.Background(), "")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	if got := client.Socket().Endpoint(); got != DefaultEndpoint {
		t.Errorf("endpoint %q, want %q", got, DefaultEndpoint)
	}
}
