// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPipeDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, server := Pipe("order")
	defer client.Close()
	defer server.Close()

	// Sent before anyone listens; delivery starts with the first handler.
	for _, p := range []string{"1", "2", "3"} {
		if err := client.Emit(ctx, "n", []byte(p)); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	got := make(chan string, 3)
	server.On("n", func(payload []byte) { got <- string(payload) })
	for _, want := range []string{"1", "2", "3"} {
		select {
		case p := <-got:
			if p != want {
				t.Fatalf("got %q, want %q", p, want)
			}
		case <-ctx.Done():
			t.Fatalf("missing %q", want)
		}
	}
}

func TestPipeClosed(t *testing.T) {
	client, server := Pipe("closed")
	server.Close()
	if err := client.Emit(context.Background(), "x", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v", err)
	}
	client.Close()
	client.Close()
}

func TestMemListener(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := Listen(ctx, "mem://listener-test")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := Listen(ctx, "mem://listener-test"); err == nil {
		t.Fatalf("second Listen on the same name succeeded")
	}

	accepted := make(chan Transport, 1)
	go func() {
		srv, err := l.Accept(ctx)
		if err == nil {
			accepted <- srv
		}
	}()

	c, err := DialTransport(ctx, "mem://listener-test")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	if c.Endpoint() != "mem://listener-test" {
		t.Errorf("endpoint %q", c.Endpoint())
	}
	select {
	case <-accepted:
	case <-ctx.Done():
		t.Fatalf("not accepted")
	}

	l.Close()
	if _, err := DialTransport(ctx, "mem://listener-test"); err == nil {
		t.Fatalf("dial after close succeeded")
	}
	if _, err := l.Accept(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Accept after close: %v", err)
	}
}
