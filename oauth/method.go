// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacklok/toolhive-oauth1/signature"
)

// AuthenticationMethod is implemented by ThreeLegged and TwoLegged.
//
// Authenticate never blocks and has no return value: every outcome reaches
// the delegate asynchronously.
type AuthenticationMethod interface {
	Authenticate()
	State() HandshakeState
	Err() error
	Tokens() *TokenStore
	// Wait blocks until no step of the handshake is running. It does not
	// wait for user authorization.
	Wait()
	// Discard cancels in-flight work and detaches the delegate. Completions
	// arriving afterwards are ignored.
	Discard()
}

var (
	_ AuthenticationMethod = (*ThreeLegged)(nil)
	_ AuthenticationMethod = (*TwoLegged)(nil)
)

type options struct {
	ctx            context.Context
	logger         *slog.Logger
	signer         signature.Signer
	store          *TokenStore
	restartOnFail  bool
	callbackPolicy CallbackPolicy
	now            func() time.Time
	nonce          func() string
}

// Option configures an authentication method.
type Option func(*options)

// WithContext sets the parent of every request context. Cancelling it
// aborts in-flight requests.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSigner replaces the RFC 5849 signer.
func WithSigner(s signature.Signer) Option {
	return func(o *options) {
		o.signer = s
	}
}

// WithTokenStore shares a store with the caller.
func WithTokenStore(s *TokenStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithRestartOnFail retries a failed request token step once per
// Authenticate call. Ignored by TwoLegged.
func WithRestartOnFail(enabled bool) Option {
	return func(o *options) {
		o.restartOnFail = enabled
	}
}

// WithCallbackPolicy selects how the delegate's callback URL is validated.
// The default allows private-use schemes.
func WithCallbackPolicy(p CallbackPolicy) Option {
	return func(o *options) {
		o.callbackPolicy = p
	}
}

// WithClock overrides the oauth_timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithNonceSource overrides the oauth_nonce source.
func WithNonceSource(nonce func() string) Option {
	return func(o *options) {
		o.nonce = nonce
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ctx:            context.Background(),
		logger:         slog.Default(),
		callbackPolicy: CallbackPolicyAllowPrivateSchemes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewTokenStore()
	}
	return o
}

func (o options) builder(authCtx AuthContext) *RequestBuilder {
	b := NewRequestBuilder(authCtx, o.signer)
	if o.now != nil {
		b.now = o.now
	}
	if o.nonce != nil {
		b.nonce = o.nonce
	}
	return b
}
