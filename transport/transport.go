// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=transport.go -destination=mocks/mock_transport.go -package=mocks Transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout bounds a single round trip made by HTTPTransport.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 1 << 20
)

// ErrRequestFailed is matched by every transport-level failure.
var ErrRequestFailed = errors.New("transport request failed")

// ErrBodyTooLarge is wrapped by the *Error returned for a response body
// larger than the configured maximum.
var ErrBodyTooLarge = errors.New("response body exceeds maximum size")

// Request describes an outbound request.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final request URL after redirects. Relative links found in
	// Body resolve against it.
	URL *url.URL
}

// Transport performs a single request/response exchange.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Error is a transport failure for one request.
type Error struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every *Error match ErrRequestFailed.
func (*Error) Is(target error) bool {
	return target == ErrRequestFailed
}

// HTTPTransport implements Transport with net/http.
type HTTPTransport struct {
	client      *http.Client
	logger      *slog.Logger
	maxBodySize int64
	userAgent   string
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient sets the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// WithMaxBodySize caps the response body size. Larger bodies fail with
// ErrBodyTooLarge.
func WithMaxBodySize(n int64) Option {
	return func(t *HTTPTransport) {
		t.maxBodySize = n
	}
}

// WithUserAgent sets the User-Agent header on requests that do not carry one.
func WithUserAgent(ua string) Option {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client:      &http.Client{Timeout: DefaultTimeout},
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
		userAgent:   "toolhive-oauth1",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, &Error{Err: errors.New("request has no URL")}
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.URL.String()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Method: method, URL: target, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.logger.Debug("transport request failed", "method", method, "url", target, "error", err)
		return nil, &Error{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return nil, &Error{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > t.maxBodySize {
		t.logger.Debug("transport response too large", "method", method, "url", target, "limit", t.maxBodySize)
		return nil, &Error{Method: method, URL: target, Err: fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, t.maxBodySize)}
	}

	t.logger.Debug("transport request completed",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start))

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        final,
	}, nil
}
