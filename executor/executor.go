// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor is the remote side of rocketrpc: it answers function-call
// events by running registered Go functions and emitting function-response
// events with their results.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/luxfi/rocketrpc"
)

var (
	ErrNotFound   = errors.New("executor: procedure not found")
	ErrBadParams  = errors.New("executor: bad params")
	ErrNotFunc    = errors.New("executor: not a function")
	ErrRegistered = errors.New("executor: procedure already registered")
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type procedure struct {
	fn     reflect.Value
	hasCtx bool
}

// Executor dispatches procedure paths to Go functions.
type Executor struct {
	mu    sync.RWMutex
	procs map[string]procedure
	log   *zap.Logger
}

// New returns an empty executor. A nil logger disables logging.
func New(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		procs: make(map[string]procedure),
		log:   log,
	}
}

// Register binds fn to path. fn may take a leading context.Context and may
// return nothing, a value, an error, or (value, error).
func (e *Executor) Register(path string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("%w: %s is %T", ErrNotFunc, path, fn)
	}
	t := v.Type()
	if t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errorType) {
		return fmt.Errorf("%w: %s returns %d values", ErrNotFunc, path, t.NumOut())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.procs[path]; ok {
		return fmt.Errorf("%w: %s", ErrRegistered, path)
	}
	e.procs[path] = procedure{
		fn:     v,
		hasCtx: t.NumIn() > 0 && t.In(0) == contextType,
	}
	return nil
}

// RegisterAPI registers every exported method of obj under prefix, with the
// first letter of the method name lowered: (*Math).Add becomes "math.add".
func (e *Executor) RegisterAPI(prefix string, obj any) error {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return fmt.Errorf("%w: %s has no receiver", ErrNotFunc, prefix)
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		name := lowerFirst(t.Method(i).Name)
		if err := e.Register(rocketrpc.JoinPath(prefix, name), v.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

// Procedures lists the registered paths, sorted.
func (e *Executor) Procedures() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	paths := make([]string, 0, len(e.procs))
	for p := range e.procs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Invoke runs the procedure at path and returns its result together with the
// response status.
func (e *Executor) Invoke(ctx context.Context, path string, params []json.RawMessage) (result any, status int, err error) {
	e.mu.RLock()
	proc, ok := e.procs[path]
	e.mu.RUnlock()
	if !ok {
		return nil, rocketrpc.StatusNotFound, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	in, err := decodeParams(ctx, proc, params)
	if err != nil {
		return nil, rocketrpc.StatusBadRequest, err
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("procedure panicked", zap.String("path", path), zap.Any("panic", r))
			result, status, err = nil, rocketrpc.StatusError, fmt.Errorf("%s panicked: %v", path, r)
		}
	}()

	out := proc.fn.Call(in)
	switch len(out) {
	case 0:
		return nil, rocketrpc.StatusOK, nil
	case 1:
		if proc.fn.Type().Out(0) == errorType {
			if err, _ := out[0].Interface().(error); err != nil {
				return nil, rocketrpc.StatusError, err
			}
			return nil, rocketrpc.StatusOK, nil
		}
		return out[0].Interface(), rocketrpc.StatusOK, nil
	default:
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, rocketrpc.StatusError, err
		}
		return out[0].Interface(), rocketrpc.StatusOK, nil
	}
}

func decodeParams(ctx context.Context, proc procedure, params []json.RawMessage) ([]reflect.Value, error) {
	t := proc.fn.Type()
	var in []reflect.Value
	first := 0
	if proc.hasCtx {
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}

	fixed := t.NumIn() - first
	if t.IsVariadic() {
		fixed--
		if len(params) < fixed {
			return nil, fmt.Errorf("%w: want at least %d, got %d", ErrBadParams, fixed, len(params))
		}
	} else if len(params) != fixed {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrBadParams, fixed, len(params))
	}

	for i, raw := range params {
		var pt reflect.Type
		if i < fixed {
			pt = t.In(first + i)
		} else {
			pt = t.In(t.NumIn() - 1).Elem()
		}
		pv := reflect.New(pt)
		if err := json.Unmarshal(raw, pv.Interface()); err != nil {
			return nil, fmt.Errorf("%w: param %d: %v", ErrBadParams, i, err)
		}
		in = append(in, pv.Elem())
	}
	return in, nil
}
