// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command rocketrpc calls procedures on a remote executor and can run a demo
// executor to call against.
//
//	rocketrpc serve -listen zap://127.0.0.1:9000
//	rocketrpc call -endpoint zap://127.0.0.1:9000 math.add 2 3
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/rocketrpc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "rocketrpc: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return flag.ErrHelp
	}
	switch args[0] {
	case "call":
		return runCall(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "transports":
		fmt.Fprintln(stdout, strings.Join(rocketrpc.AvailableTransports(), "\n"))
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: rocketrpc call [flags] <path> [args...]")
	fmt.Fprintln(w, "       rocketrpc serve [flags]")
	fmt.Fprintln(w, "       rocketrpc transports")
}

func runCall(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")
	endpoint := fs.String("endpoint", "", "executor endpoint (default "+rocketrpc.DefaultEndpoint+")")
	timeout := fs.Duration("timeout", 0, "call timeout")
	output := fs.String("o", "", "output format: json or yaml")
	noColor := fs.Bool("no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("call: missing procedure path")
	}

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *output != "" {
		out, err := parseOutput(*output)
		if err != nil {
			return err
		}
		cfg.Output = out
	}
	if *noColor {
		cfg.Color = false
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	opts := []rocketrpc.Option{rocketrpc.WithLogger(log)}
	for k, v := range cfg.Headers {
		opts = append(opts, rocketrpc.WithHeader(k, v))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := rocketrpc.Dial(ctx, cfg.Endpoint, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	params := parseArgs(fs.Args()[1:])
	p := newPrinter(stdout, stderr, cfg.Output, cfg.Color)
	target, err := client.Resolve(fs.Arg(0))
	if err != nil {
		return err
	}
	result, err := target.Go(ctx, params...).Await(ctx)
	if err != nil {
		p.failure(err)
		return err
	}
	return p.result(result)
}

// parseArgs reads each argument as JSON and falls back to a plain string.
func parseArgs(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			v = arg
		}
		params = append(params, v)
	}
	return params
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	listen := fs.String("listen", "zap://127.0.0.1:9000", "endpoint to serve on")
	logLevel := fs.String("log-level", "info", "debug, info, warn, error or off")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	exec, err := newDemoExecutor(log)
	if err != nil {
		return err
	}
	log.Info("serving", zap.String("endpoint", *listen), zap.Strings("procedures", exec.Procedures()))
	return serveEndpoint(ctx, exec, *listen, log)
}

const shutdownGrace = 5 * time.Second
