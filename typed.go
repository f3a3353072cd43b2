// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	callType      = reflect.TypeOf((*Call)(nil))
	transportType = reflect.TypeOf((*Transport)(nil)).Elem()
)

// Invoke calls the procedure at h and decodes its result as R.
func Invoke[R any](ctx context.Context, h Handle, args ...any) (R, error) {
	var reply R
	err := h.Call(ctx, &reply, args...)
	return reply, err
}

// Bind fills api, a pointer to a struct describing the remote API, with
// functions that call through h. Each exported field maps to the member named
// by its `rpc` tag, or to the field name itself; `rpc:"-"` skips the field.
//
// Function fields may take an optional leading context.Context and return one of
// *Call, error, or (R, error). Struct and pointer-to-struct fields bind
// recursively. A Transport field named by SocketMember receives the socket.
//
//	var api struct {
//		Math struct {
//			Add func(ctx context.Context, a, b int) (int, error) `rpc:"add"`
//		} `rpc:"math"`
//	}
//	err := rocketrpc.Bind(client.Handle, &api)
//	sum, err := api.Math.Add(ctx, 2, 3)
func Bind(h Handle, api any) error {
	v := reflect.ValueOf(api)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: Bind needs a non-nil pointer to struct, got %T", ErrNotCallable, api)
	}
	return bindStruct(h, v.Elem())
}

func bindStruct(h Handle, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("rpc"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if err := bindField(h, name, v.Field(i)); err != nil {
			return fmt.Errorf("field %s (%s): %w", field.Name, JoinPath(h.path, name), err)
		}
	}
	return nil
}

func bindField(h Handle, name string, fv reflect.Value) error {
	ft := fv.Type()
	if name == SocketMember {
		if !transportType.AssignableTo(ft) {
			return fmt.Errorf("%w: %q must be a Transport, got %s", ErrNotCallable, name, ft)
		}
		if socket := h.Socket(); socket != nil {
			fv.Set(reflect.ValueOf(socket))
		}
		return nil
	}

	switch ft.Kind() {
	case reflect.Func:
		fn, err := makeFunc(h.Get(name), ft)
		if err != nil {
			return err
		}
		fv.Set(fn)
		return nil
	case reflect.Struct:
		return bindStruct(h.Get(name), fv)
	case reflect.Pointer:
		if ft.Elem().Kind() != reflect.Struct {
			break
		}
		if fv.IsNil() {
			fv.Set(reflect.New(ft.Elem()))
		}
		return bindStruct(h.Get(name), fv.Elem())
	}
	return fmt.Errorf("%w: %s", ErrNotCallable, ft)
}

type resultShape int

const (
	returnsCall resultShape = iota
	returnsError
	returnsValue
)

func makeFunc(h Handle, ft reflect.Type) (reflect.Value, error) {
	var shape resultShape
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == callType:
		shape = returnsCall
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		shape = returnsError
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		shape = returnsValue
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s must return *Call, error or (T, error)", ErrNotCallable, ft)
	}
	hasCtx := ft.NumIn() > 0 && ft.In(0) == contextType

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if hasCtx {
			if c, ok := in[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
			in = in[1:]
		}

		args := make([]any, 0, len(in))
		for i, arg := range in {
			if ft.IsVariadic() && i == len(in)-1 {
				for j := 0; j < arg.Len(); j++ {
					args = append(args, arg.Index(j).Interface())
				}
				continue
			}
			args = append(args, arg.Interface())
		}

		call := h.Go(ctx, args...)
		switch shape {
		case returnsCall:
			return []reflect.Value{reflect.ValueOf(call)}
		case returnsError:
			return []reflect.Value{errorValue(call.Decode(ctx, nil))}
		default:
			out := reflect.New(ft.Out(0))
			err := call.Decode(ctx, out.Interface())
			return []reflect.Value{out.Elem(), errorValue(err)}
		}
	}), nil
}

func errorValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	return reflect.ValueOf(&err).Elem()
}
