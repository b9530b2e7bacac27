// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/stacklok/toolhive-oauth1/internal/fsm"
	"github.com/stacklok/toolhive-oauth1/notify"
	"github.com/stacklok/toolhive-oauth1/transport"
)

// ThreeLegged runs the interactive OAuth 1.0a handshake.
type ThreeLegged struct {
	authCtx        AuthContext
	transport      transport.Transport
	builder        *RequestBuilder
	store          *TokenStore
	delegate       *notify.Notifier[ThreeLeggedDelegate]
	runner         *fsm.Runner
	logger         *slog.Logger
	restartOnFail  bool
	callbackPolicy CallbackPolicy

	mu        sync.Mutex
	state     HandshakeState
	gen       uint64
	discarded bool
	restarted bool
	authURL   *url.URL
	err       error
}

// NewThreeLegged returns a method in Idle. authCtx is copied.
func NewThreeLegged(
	authCtx AuthContext,
	t transport.Transport,
	delegate ThreeLeggedDelegate,
	opts ...Option,
) (*ThreeLegged, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if delegate == nil {
		return nil, fmt.Errorf("delegate is required")
	}
	authCtx = authCtx.Clone()
	if err := authCtx.RequireThreeLegged(); err != nil {
		return nil, fmt.Errorf("invalid authentication context: %w", err)
	}

	o := buildOptions(opts)
	logger := o.logger.With("component", "oauth", "method", "three-legged")
	return &ThreeLegged{
		authCtx:        authCtx,
		transport:      t,
		builder:        o.builder(authCtx),
		store:          o.store,
		delegate:       notify.New(delegate, logger),
		runner:         fsm.NewRunner(o.ctx),
		logger:         logger,
		restartOnFail:  o.restartOnFail,
		callbackPolicy: o.callbackPolicy,
	}, nil
}

// Authenticate starts the handshake, abandoning any attempt in progress.
// The new attempt's first request is sent only after the abandoned
// attempt's request has returned.
func (m *ThreeLegged) Authenticate() {
	m.mu.Lock()
	if m.discarded {
		m.mu.Unlock()
		return
	}
	m.restarted = false
	m.store.Clear(RequestToken)
	m.authURL, m.err = nil, nil

	gen, ok := m.runner.Start(m.requestToken)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.gen = gen
	from := m.state
	m.state = RequestingToken
	m.mu.Unlock()

	m.logger.Debug("starting handshake", "generation", gen)
	m.notifyState(from, RequestingToken)
}

// State returns the current state.
func (m *ThreeLegged) State() HandshakeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error of the last failed attempt.
func (m *ThreeLegged) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Tokens returns the token store.
func (m *ThreeLegged) Tokens() *TokenStore {
	return m.store
}

// AuthorizationURL returns the URL the user must visit, or nil when no
// request token is waiting for authorization.
func (m *ThreeLegged) AuthorizationURL() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneURL(m.authURL)
}

// Wait blocks until no request is in flight.
func (m *ThreeLegged) Wait() {
	m.runner.Wait()
}

// Discard cancels in-flight work and detaches the delegate.
func (m *ThreeLegged) Discard() {
	m.mu.Lock()
	m.discarded = true
	m.gen = 0
	m.mu.Unlock()

	m.runner.Close()
	m.delegate.Detach()
}

// CompleteAuthorization resumes the handshake after the user authorized
// the request token. token may be empty; when set it must name the pending
// request token. An empty verifier is requested from a VerifierProvider.
func (m *ThreeLegged) CompleteAuthorization(token, verifier string) error {
	if verifier == "" {
		m.delegate.Notify("verifier", func(d ThreeLeggedDelegate) {
			if p, ok := notify.As[VerifierProvider](d); ok {
				verifier = p.VerifierForCompletedUserAuthorization()
			}
		})
	}

	m.mu.Lock()
	pending := m.store.Token(RequestToken)
	from := m.state
	switch {
	case m.discarded || pending == nil:
		m.mu.Unlock()
		return ErrNoPendingAuthorization
	case from != AwaitingUserAuthorization && from != Idle:
		m.mu.Unlock()
		return fmt.Errorf("%w: handshake is %s", ErrNoPendingAuthorization, from)
	case token != "" && token != pending.Key:
		m.mu.Unlock()
		return ErrTokenMismatch
	case verifier == "":
		m.mu.Unlock()
		return ErrMissingVerifier
	}
	if err := threeLeggedTransitions.Check(from, ExchangingToken); err != nil {
		m.mu.Unlock()
		return err
	}

	gen := m.gen
	if !m.runner.Continue(gen, func(ctx context.Context) {
		m.exchange(ctx, gen, pending, verifier)
	}) {
		m.mu.Unlock()
		return ErrNoPendingAuthorization
	}
	m.moveLocked(ExchangingToken)
	m.authURL = nil
	m.mu.Unlock()

	m.logger.Debug("user authorization completed", "request_token", pending.Key)
	m.notifyState(from, ExchangingToken)
	return nil
}

// HandleCallback completes authorization from the URL the service provider
// redirected the user to.
func (m *ThreeLegged) HandleCallback(u *url.URL) error {
	if u == nil {
		return ErrNoPendingAuthorization
	}
	q := u.Query()
	if q.Has("denied") || q.Get("error") == "access_denied" {
		return ErrAuthorizationDenied
	}
	return m.CompleteAuthorization(q.Get(ParamToken), q.Get(ParamVerifier))
}

func (m *ThreeLegged) requestToken(ctx context.Context, gen uint64) {
	callback := OutOfBand
	params := map[string]string{}
	m.delegate.Notify("request_token_parameters", func(d ThreeLeggedDelegate) {
		if u := d.CallbackURLForCompletedUserAuthorization(); u != nil {
			callback = u.String()
		}
		if p, ok := notify.As[RequestTokenParameterProvider](d); ok {
			for k, v := range p.AdditionalRequestTokenParameters() {
				params[k] = v
			}
		}
	})
	if err := ValidateCallbackURL(callback, m.callbackPolicy); err != nil {
		m.failRequestToken(gen, &HandshakeError{Phase: PhaseRequestToken, Err: err})
		return
	}
	params[ParamCallback] = callback

	req, err := m.builder.Build(m.authCtx.RequestTokenURL, nil, params)
	if err != nil {
		m.failRequestToken(gen, &HandshakeError{Phase: PhaseRequestToken, Err: err})
		return
	}

	resp, err := m.transport.Do(ctx, req)
	if !m.current(gen) {
		return
	}
	values, err := readTokenResponse(PhaseRequestToken, resp, err)
	if err != nil {
		m.failRequestToken(gen, err)
		return
	}
	if confirmed, ok := values[ParamCallbackConfirmed]; ok && confirmed != "true" {
		m.failRequestToken(gen, &HandshakeError{
			Phase: PhaseResponseMalformed,
			Err:   fmt.Errorf("%w: %s=%s", ErrResponseMalformed, ParamCallbackConfirmed, confirmed),
		})
		return
	}
	token, err := tokenFromParams(values)
	if err != nil {
		m.failRequestToken(gen, &HandshakeError{Phase: PhaseResponseMalformed, Err: err})
		return
	}

	authURL := m.authorizationURL(token.Key, callback)

	m.mu.Lock()
	if gen != m.gen || m.discarded {
		m.mu.Unlock()
		return
	}
	m.store.Set(RequestToken, token)
	m.authURL = authURL
	if _, ok := m.moveLocked(AwaitingUserAuthorization); !ok {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.logger.Debug("obtained request token", "request_token", token.Key)
	m.notifyState(RequestingToken, AwaitingUserAuthorization)

	var callbackURL *url.URL
	if callback != OutOfBand {
		callbackURL, _ = url.Parse(callback)
	}
	opened := false
	m.delegate.Notify("authorization_required", func(d ThreeLeggedDelegate) {
		opened = d.AutomaticallyRequestAuthentication(cloneURL(authURL), callbackURL)
	})
	if opened {
		return
	}

	// The delegate may already have completed authorization synchronously.
	m.mu.Lock()
	if gen != m.gen || m.discarded || m.state != AwaitingUserAuthorization {
		m.mu.Unlock()
		return
	}
	m.moveLocked(Idle)
	m.mu.Unlock()

	m.logger.Debug("delegate declined automatic authorization", "authorization_url", authURL.String())
	m.notifyState(AwaitingUserAuthorization, Idle)
}

func (m *ThreeLegged) authorizationURL(requestToken, callback string) *url.URL {
	u := cloneURL(m.authCtx.AuthorizeTokenURL)
	q := u.Query()
	q.Set(ParamToken, requestToken)
	if callback != OutOfBand {
		q.Set(ParamCallback, callback)
	}
	u.RawQuery = q.Encode()
	return u
}

// failRequestToken enters Failed and either restarts once or reports the
// error to the delegate.
func (m *ThreeLegged) failRequestToken(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.discarded {
		m.mu.Unlock()
		return
	}
	from, ok := m.moveLocked(Failed)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.err = err
	restart := m.restartOnFail && !m.restarted
	if restart {
		m.restarted = true
	}
	m.mu.Unlock()

	m.notifyState(from, Failed)

	if !restart {
		m.logger.Warn("request token step failed", "error", err)
		m.notifyFailure(err)
		return
	}

	m.logger.Info("request token step failed, restarting once", "error", err)
	m.mu.Lock()
	if gen != m.gen || m.discarded || m.state != Failed {
		m.mu.Unlock()
		return
	}
	if !m.runner.Continue(gen, func(ctx context.Context) { m.requestToken(ctx, gen) }) {
		m.mu.Unlock()
		return
	}
	m.moveLocked(RequestingToken)
	m.err = nil
	m.mu.Unlock()

	m.notifyState(Failed, RequestingToken)
}

func (m *ThreeLegged) exchange(ctx context.Context, gen uint64, requestToken *Token, verifier string) {
	req, err := m.builder.Build(m.authCtx.AccessTokenURL, requestToken, map[string]string{
		ParamVerifier: verifier,
	})
	if err != nil {
		m.fail(gen, &HandshakeError{Phase: PhaseAccessToken, Err: err})
		return
	}

	resp, err := m.transport.Do(ctx, req)
	if !m.current(gen) {
		return
	}
	params, err := readTokenResponse(PhaseAccessToken, resp, err)
	if err != nil {
		m.fail(gen, err)
		return
	}
	token, err := tokenFromParams(params)
	if err != nil {
		m.fail(gen, &HandshakeError{Phase: PhaseResponseMalformed, Err: err})
		return
	}

	m.mu.Lock()
	if gen != m.gen || m.discarded {
		m.mu.Unlock()
		return
	}
	m.store.Set(AccessToken, token)
	m.store.Clear(RequestToken)
	m.store.SetParams(params)
	m.moveLocked(Authenticated)
	m.mu.Unlock()

	m.logger.Info("handshake complete", "access_token", token.Key)
	m.notifyState(ExchangingToken, Authenticated)
	m.delegate.Notify("succeeded", func(d ThreeLeggedDelegate) {
		if o, ok := notify.As[SuccessObserver](d); ok {
			o.AuthenticationDidSucceed()
		}
		if o, ok := notify.As[ParameterObserver](d); ok {
			o.AuthenticationDidReturnParameters(params)
		}
	})
}

// fail enters the terminal Failed state.
func (m *ThreeLegged) fail(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.discarded {
		m.mu.Unlock()
		return
	}
	from, ok := m.moveLocked(Failed)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.err = err
	m.mu.Unlock()

	m.logger.Warn("access token step failed", "error", err)
	m.notifyState(from, Failed)
	m.notifyFailure(err)
}

// moveLocked applies a transition from the table. m.mu must be held.
func (m *ThreeLegged) moveLocked(to HandshakeState) (HandshakeState, bool) {
	from := m.state
	if err := threeLeggedTransitions.Check(from, to); err != nil {
		m.logger.Error("rejected transition", "error", err)
		return from, false
	}
	m.state = to
	return from, true
}

func (m *ThreeLegged) current(gen uint64) bool {
	return m.runner.Current(gen)
}

func (m *ThreeLegged) notifyState(from, to HandshakeState) {
	m.logger.Debug("state changed", "from", from.String(), "to", to.String())
	m.delegate.Notify("state_changed", func(d ThreeLeggedDelegate) {
		if o, ok := notify.As[StateObserver](d); ok {
			o.HandshakeStateDidChange(from, to)
		}
	})
}

func (m *ThreeLegged) notifyFailure(err error) {
	m.delegate.Notify("failed", func(d ThreeLeggedDelegate) {
		if o, ok := notify.As[FailureObserver](d); ok {
			o.AuthenticationDidFail(err)
		}
	})
}
