// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/rocketrpc"
	"github.com/luxfi/rocketrpc/executor"
)

type mathAPI struct{}

func (mathAPI) Add(a, b float64) float64 { return a + b }
func (mathAPI) Sub(a, b float64) float64 { return a - b }
func (mathAPI) Mul(a, b float64) float64 { return a * b }

func (mathAPI) Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func newDemoExecutor(log *zap.Logger) (*executor.Executor, error) {
	exec := executor.New(log)
	if err := exec.RegisterAPI("math", mathAPI{}); err != nil {
		return nil, err
	}
	if err := exec.Register("echo", func(args ...any) []any { return args }); err != nil {
		return nil, err
	}
	if err := exec.Register("time.now", func() string { return time.Now().UTC().Format(time.RFC3339Nano) }); err != nil {
		return nil, err
	}
	return exec, nil
}

// serveEndpoint serves exec on endpoint until ctx is done. http and https
// endpoints are served as JSON-RPC over HTTP, every other scheme through its
// listener.
func serveEndpoint(ctx context.Context, exec *executor.Executor, endpoint string, log *zap.Logger) error {
	if strings.HasPrefix(endpoint, rocketrpc.SchemeHTTP+"://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("parse endpoint: %w", err)
		}
		mux := http.NewServeMux()
		path := u.Path
		if path == "" {
			path = "/"
		}
		mux.Handle(path, exec.HTTPHandler())
		srv := &http.Server{Addr: u.Host, Handler: mux}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	l, err := rocketrpc.Listen(ctx, endpoint)
	if err != nil {
		return err
	}
	defer l.Close()
	log.Info("listening", zap.String("addr", l.Addr()))
	return exec.Serve(ctx, l)
}
