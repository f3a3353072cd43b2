// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/rocketrpc"
	"github.com/luxfi/rocketrpc/executor"
)

type mathService struct{}

func (mathService) Add(a, b int) int { return a + b }

func (mathService) Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func newTestExecutor(t testing.TB) *executor.Executor {
	t.Helper()
	exec := executor.New(nil)
	if err := exec.RegisterAPI("math", mathService{}); err != nil {
		t.Fatalf("RegisterAPI: %v", err)
	}
	users := map[int]string{1: "ada"}
	var mu sync.Mutex
	if err := exec.Register("users.delete", func(id int) error {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := users[id]; !ok {
			return errors.New("not found")
		}
		delete(users, id)
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := exec.Register("slow.echo", func(ctx context.Context, d time.Duration, v string) (string, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return exec
}

// serve starts the executor behind endpoint and returns the address to dial.
func serve(t *testing.T, ctx context.Context, endpoint string) string {
	t.Helper()
	l, err := rocketrpc.Listen(ctx, endpoint)
	if err != nil {
		t.Fatalf("Listen %s: %v", endpoint, err)
	}
	t.Cleanup(func() { l.Close() })
	go newTestExecutor(t).Serve(ctx, l)
	return l.Addr()
}

func endpoints(t *testing.T, ctx context.Context) map[string]string {
	srv := httptest.NewServer(newTestExecutor(t).HTTPHandler())
	t.Cleanup(srv.Close)
	return map[string]string{
		"mem":     serve(t, ctx, "mem://"+t.Name()),
		"zap":     serve(t, ctx, "zap://127.0.0.1:0"),
		"jsonrpc": serve(t, ctx, "jsonrpc://127.0.0.1:0"),
		"grpc":    serve(t, ctx, "grpc://127.0.0.1:0"),
		"http":    srv.URL,
	}
}

func TestTransports(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	for name, endpoint := range endpoints(t, ctx) {
		t.Run(name, func(t *testing.T) {
			client, err := rocketrpc.Dial(ctx, endpoint)
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer client.Close()

			var sum int
			if err := client.Get("math").Get("add").Call(ctx, &sum, 2, 3); err != nil {
				t.Fatalf("math.add: %v", err)
			}
			if sum != 5 {
				t.Errorf("math.add = %d, want 5", sum)
			}

			quotient, err := rocketrpc.Invoke[float64](ctx, client.Path("math.div"), 1, 4)
			if err != nil || quotient != 0.25 {
				t.Errorf("math.div = %v, %v", quotient, err)
			}

			err = client.Path("users.delete").Call(ctx, nil, 42)
			var re *rocketrpc.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("users.delete(42) = %v, want remote error", err)
			}
			if re.Status <= rocketrpc.StatusOK || re.Message == "" {
				t.Errorf("remote error %+v", re)
			}

			err = client.Path("no.such.procedure").Call(ctx, nil)
			if !errors.As(err, &re) || re.Status != rocketrpc.StatusNotFound {
				t.Errorf("unknown procedure = %v", err)
			}

			if client.Bridge().Pending() != 0 {
				t.Errorf("%d calls left pending", client.Bridge().Pending())
			}
		})
	}
}

func TestTransportsConcurrentCalls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	for name, endpoint := range endpoints(t, ctx) {
		t.Run(name, func(t *testing.T) {
			client, err := rocketrpc.Dial(ctx, endpoint)
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer client.Close()

			const n = 32
			calls := make([]*rocketrpc.Call, n)
			for i := range calls {
				// Later calls finish first.
				delay := time.Duration(n-i) * time.Millisecond
				calls[i] = client.Path("slow.echo").Go(ctx, delay, fmt.Sprint(i))
			}
			for i, c := range calls {
				var got string
				if err := c.Decode(ctx, &got); err != nil {
					t.Fatalf("call %d: %v", i, err)
				}
				if got != fmt.Sprint(i) {
					t.Errorf("call %d settled with %q", i, got)
				}
			}
		})
	}
}

func TestSocketIsLiveTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := serve(t, ctx, "zap://127.0.0.1:0")
	client, err := rocketrpc.Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	socket, ok := client.Get("math").Member(rocketrpc.SocketMember).(rocketrpc.Transport)
	if !ok {
		t.Fatalf("socket member is not a transport")
	}
	if socket.Endpoint() != addr {
		t.Errorf("endpoint %q, want %q", socket.Endpoint(), addr)
	}
}

func TestBindAgainstExecutor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := rocketrpc.Dial(ctx, serve(t, ctx, "mem://bind"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var api struct {
		Math struct {
			Add func(ctx context.Context, a, b int) (int, error)         `rpc:"add"`
			Div func(ctx context.Context, a, b float64) (float64, error) `rpc:"div"`
		} `rpc:"math"`
		Users struct {
			Delete func(ctx context.Context, id int) error `rpc:"delete"`
		} `rpc:"users"`
	}
	if err := rocketrpc.Bind(client.Handle, &api); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if sum, err := api.Math.Add(ctx, 40, 2); err != nil || sum != 42 {
		t.Errorf("Add = %d, %v", sum, err)
	}
	if _, err := api.Math.Div(ctx, 1, 0); !rocketrpc.IsRemote(err) {
		t.Errorf("Div by zero = %v", err)
	}
	if err := api.Users.Delete(ctx, 1); err != nil {
		t.Errorf("Delete(1) = %v", err)
	}
	if err := api.Users.Delete(ctx, 1); !rocketrpc.IsRemote(err) {
		t.Errorf("second Delete(1) = %v", err)
	}
}
