// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type mathAPI struct {
	Add  func(ctx context.Context, a, b int) (int, error)  `rpc:"add"`
	Sum  func(ctx context.Context, xs ...int) (int, error) `rpc:"sum"`
	Neg  func(x int) (int, error)                          `rpc:"neg"`
	Tick func(ctx context.Context) *Call                   `rpc:"tick"`
}

type remoteAPI struct {
	Math  mathAPI `rpc:"math"`
	Users *struct {
		Delete func(ctx context.Context, id int) error `rpc:"delete"`
	} `rpc:"users"`
	Ping     func() (string, error)
	Socket   Transport    `rpc:"socket"`
	Ignored  func() error `rpc:"-"`
	internal func()
}

// sumReplier answers every call with the sum of its integer params, or with a
// failure for users.delete.
func sumReplier(d RawDescriptor) Response {
	if d.ProcedurePath == "users.delete" {
		return Response{ID: d.ID, Status: StatusNotFound, Error: "not found"}
	}
	if d.ProcedurePath == "Ping" {
		return Response{ID: d.ID, Status: StatusOK, Result: []byte(`"pong"`)}
	}
	total := 0
	for _, p := range d.Params {
		var n int
		json.Unmarshal(p, &n)
		total += n
	}
	if d.ProcedurePath == "math.neg" {
		total = -total
	}
	b, _ := json.Marshal(total)
	return Response{ID: d.ID, Status: StatusOK, Result: b}
}

func TestBind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := &fakeTransport{reply: sumReplier}
	client := NewClient(f)

	var api remoteAPI
	if err := Bind(client.Handle, &api); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if sum, err := api.Math.Add(ctx, 2, 3); err != nil || sum != 5 {
		t.Errorf("Add = %d, %v", sum, err)
	}
	if got := f.last(t).ProcedurePath; got != "math.add" {
		t.Errorf("path %q", got)
	}

	if sum, err := api.Math.Sum(ctx, 1, 2, 3, 4); err != nil || sum != 10 {
		t.Errorf("Sum = %d, %v", sum, err)
	}
	if n := len(f.last(t).Params); n != 4 {
		t.Errorf("variadic params flattened to %d", n)
	}

	if v, err := api.Math.Neg(7); err != nil || v != -7 {
		t.Errorf("Neg = %d, %v", v, err)
	}

	call := api.Math.Tick(ctx)
	var ticks int
	if err := call.Decode(ctx, &ticks); err != nil {
		t.Errorf("Tick: %v", err)
	}

	err := api.Users.Delete(ctx, 42)
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "not found" {
		t.Errorf("Delete = %v", err)
	}

	if s, err := api.Ping(); err != nil || s != "pong" {
		t.Errorf("Ping = %q, %v", s, err)
	}

	if api.Socket != Transport(f) {
		t.Errorf("socket field not bound to the transport")
	}
	if api.Ignored != nil {
		t.Errorf("skipped field was bound")
	}
}

func TestBindRejects(t *testing.T) {
	client, _ := newFakeClient()

	var notPtr remoteAPI
	if err := Bind(client.Handle, notPtr); !errors.Is(err, ErrNotCallable) {
		t.Errorf("non-pointer: %v", err)
	}

	var badReturn struct {
		F func() int
	}
	if err := Bind(client.Handle, &badReturn); !errors.Is(err, ErrNotCallable) {
		t.Errorf("bad return: %v", err)
	}

	var badField struct {
		N int
	}
	if err := Bind(client.Handle, &badField); !errors.Is(err, ErrNotCallable) {
		t.Errorf("int field: %v", err)
	}

	var badSocket struct {
		Socket func() error `rpc:"socket"`
	}
	if err := Bind(client.Handle, &badSocket); !errors.Is(err, ErrNotCallable) {
		t.Errorf("socket func: %v", err)
	}
}

func TestBindErrorNamesPath(t *testing.T) {
	client, _ := newFakeClient()

	var api struct {
		Math struct {
			Add func() int `rpc:"add"`
		} `rpc:"math"`
	}
	err := Bind(client.Handle, &api)
	if !errors.Is(err, ErrNotCallable) || !strings.Contains(err.Error(), "math.add") {
		t.Fatalf("got %v", err)
	}
}
