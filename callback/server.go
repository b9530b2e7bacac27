// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package callback

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-oauth1/httperr"
	"github.com/stacklok/toolhive-oauth1/recovery"
)

// Path is where the server expects the redirect.
const Path = "/callback"

// ErrServerClosed is returned by WaitForCallback once the server stopped
// without receiving a callback.
var ErrServerClosed = errors.New("callback server closed")

//go:embed templates/success.html
var successHTML string

//go:embed templates/error.html
var errorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(successHTML))
	errorTemplate   = template.Must(template.New("error").Parse(errorHTML))
)

// Result is a received authorization redirect.
type Result struct {
	Token    string
	Verifier string
	// Denied is set when the service provider reports that the user refused.
	Denied bool
	// URL is the full redirect URL as received.
	URL *url.URL
}

// Server is a loopback HTTP server that accepts exactly one callback.
type Server struct {
	port   int
	logger *slog.Logger

	mu          sync.Mutex
	server      *http.Server
	listener    net.Listener
	callbackURL *url.URL

	once     sync.Once
	resultCh chan *Result
	errCh    chan error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPort sets the listening port. 0, the default, picks a free port.
func WithPort(port int) ServerOption {
	return func(s *Server) {
		s.port = port
	}
}

// WithServerLogger sets the logger. The default is slog.Default().
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer returns a stopped server.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		logger:   slog.Default(),
		resultCh: make(chan *Result, 1),
		errCh:    make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recovery.Middleware(s.logger))
	r.Get(Path, s.handleCallback)
	return r
}

// Start listens on 127.0.0.1 and serves until ctx is cancelled or Stop is
// called. It returns the callback URL.
func (s *Server) Start(ctx context.Context) (*url.URL, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.callbackURL = &url.URL{Scheme: "http", Host: listener.Addr().String(), Path: Path}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Debug("callback server listening", "address", listener.Addr().String())
	return s.CallbackURL(), nil
}

// CallbackURL returns the URL to register as oauth_callback, or nil before Start.
func (s *Server) CallbackURL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callbackURL == nil {
		return nil
	}
	u := *s.callbackURL
	return &u
}

// Port returns the listening port.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// WaitForCallback blocks until the callback arrives, the server fails, or
// ctx is done.
func (s *Server) WaitForCallback(ctx context.Context) (*Result, error) {
	select {
	case res := <-s.resultCh:
		return res, nil
	case err := <-s.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	srv, listener := s.server, s.listener
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	if listener != nil {
		_ = listener.Close()
	}
	select {
	case s.errCh <- ErrServerClosed:
	default:
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})
	if !handled {
		err := httperr.New("callback already processed", http.StatusConflict)
		http.Error(w, err.Error(), httperr.Code(err))
	}
}

func (s *Server) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := r.URL.Query()
	received := *r.URL
	res := &Result{
		Token:    q.Get("oauth_token"),
		Verifier: q.Get("oauth_verifier"),
		Denied:   q.Has("denied") || q.Get("error") == "access_denied",
		URL:      &received,
	}

	var err error
	switch {
	case res.Denied:
		w.WriteHeader(http.StatusForbidden)
		err = errorTemplate.Execute(w, map[string]string{"Message": "Access was denied."})
	case res.Token == "" || res.Verifier == "":
		w.WriteHeader(http.StatusBadRequest)
		err = errorTemplate.Execute(w, map[string]string{"Message": "The redirect did not carry oauth_token and oauth_verifier."})
	default:
		err = successTemplate.Execute(w, nil)
	}
	if err != nil {
		s.logger.Warn("failed to render callback page", "error", err)
	}

	s.logger.Debug("received authorization callback", "oauth_token", res.Token, "denied", res.Denied)
	select {
	case s.resultCh <- res:
	default:
	}
}
