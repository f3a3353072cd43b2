// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rocketrpc

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is dialed when Dial is given an empty endpoint.
const DefaultEndpoint = "http://localhost:8080"

// Client is the facade returned by Dial. It is the root Handle of the remote
// API: every path is reached from it with Get, Path or Member.
type Client struct {
	Handle
}

// NewClient wraps an already connected transport.
func NewClient(t Transport, opts ...Option) *Client {
	return &Client{Handle: Handle{bridge: NewBridge(t, opts...)}}
}

// Bridge returns the bridge shared by every handle of this client.
func (c *Client) Bridge() *Bridge {
	return c.bridge
}

// Close closes the underlying transport. Pending calls stay unsettled.
func (c *Client) Close() error {
	return c.bridge.transport.Close()
}

// Option configures clients and transports.
type Option func(*Options)

// Options is the resolved set of Option values.
type Options struct {
	codec       Codec
	logger      *zap.Logger
	ids         IDGenerator
	headers     http.Header
	queryParams url.Values
	retries     int
	retryWait   time.Duration
	tlsConfig   *tls.Config
}

// NewOptions applies opts over the defaults.
func NewOptions(opts []Option) *Options {
	o := &Options{
		codec:       defaultCodec,
		headers:     http.Header{},
		queryParams: url.Values{},
		retries:     maxRetries,
		retryWait:   retryBaseWait,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.ids == nil {
		o.ids = &SequenceIDs{}
	}
	return o
}

// WithCodec sets a custom codec
func WithCodec(c Codec) Option {
	return func(o *Options) { o.codec = c }
}

// WithLogger sets the logger used instead of the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithIDGenerator sets how correlation ids are produced.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Options) { o.ids = g }
}

// WithHeader adds an HTTP header to every request of the http transport.
func WithHeader(key, value string) Option {
	return func(o *Options) { o.headers.Add(key, value) }
}

// WithQueryParam adds a query parameter to every request of the http transport.
func WithQueryParam(key, value string) Option {
	return func(o *Options) { o.queryParams.Add(key, value) }
}

// WithRetry sets the attempt count and base backoff of the http transport.
func WithRetry(attempts int, baseWait time.Duration) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.retries = attempts
		}
		o.retryWait = baseWait
	}
}

// WithTLS enables TLS for the grpc transport and overrides it for https.
func WithTLS(cfg *tls.Config) Option {
	return func(o *Options) { o.tlsConfig = cfg }
}

// Logger returns the resolved logger, for transports registered outside this package.
func (o *Options) Logger() *zap.Logger {
	return o.logger
}

// TLSConfig returns the configured TLS settings, or nil.
func (o *Options) TLSConfig() *tls.Config {
	return o.tlsConfig
}
