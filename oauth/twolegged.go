// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stacklok/toolhive-oauth1/internal/fsm"
	"github.com/stacklok/toolhive-oauth1/notify"
	"github.com/stacklok/toolhive-oauth1/transport"
)

// TwoLegged exchanges consumer credentials directly at the access token
// endpoint, with no user involvement.
type TwoLegged struct {
	authCtx   AuthContext
	transport transport.Transport
	builder   *RequestBuilder
	store     *TokenStore
	delegate  *notify.Notifier[TwoLeggedDelegate]
	runner    *fsm.Runner
	logger    *slog.Logger

	mu        sync.Mutex
	state     HandshakeState
	gen       uint64
	discarded bool
	err       error
}

// NewTwoLegged returns a method in Idle. delegate may be nil.
func NewTwoLegged(authCtx AuthContext, t transport.Transport, delegate TwoLeggedDelegate, opts ...Option) (*TwoLegged, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	authCtx = authCtx.Clone()
	if err := authCtx.RequireTwoLegged(); err != nil {
		return nil, fmt.Errorf("invalid authentication context: %w", err)
	}

	o := buildOptions(opts)
	logger := o.logger.With("component", "oauth", "method", "two-legged")
	return &TwoLegged{
		authCtx:   authCtx,
		transport: t,
		builder:   o.builder(authCtx),
		store:     o.store,
		delegate:  notify.New(delegate, logger),
		runner:    fsm.NewRunner(o.ctx),
		logger:    logger,
	}, nil
}

// Authenticate starts the exchange. While an exchange is running the call is
// rejected and ErrAlreadyInProgress goes to the FailureObserver.
func (m *TwoLegged) Authenticate() {
	m.mu.Lock()
	if m.discarded {
		m.mu.Unlock()
		return
	}
	from := m.state
	if !twoLeggedTransitions.Allowed(from, ExchangingToken) {
		m.mu.Unlock()
		m.logger.Debug("rejecting authenticate", "state", from.String())
		m.notifyFailure(ErrAlreadyInProgress)
		return
	}

	gen, ok := m.runner.Start(m.exchange)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.gen = gen
	m.err = nil
	m.store.Reset()
	m.state = ExchangingToken
	m.mu.Unlock()

	m.notifyState(from, ExchangingToken)
}

// State returns the current state.
func (m *TwoLegged) State() HandshakeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error of the last failed attempt.
func (m *TwoLegged) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Tokens returns the token store.
func (m *TwoLegged) Tokens() *TokenStore {
	return m.store
}

// Wait blocks until the exchange has returned.
func (m *TwoLegged) Wait() {
	m.runner.Wait()
}

// Discard cancels the exchange and detaches the delegate.
func (m *TwoLegged) Discard() {
	m.mu.Lock()
	m.discarded = true
	m.gen = 0
	m.mu.Unlock()

	m.runner.Close()
	m.delegate.Detach()
}

func (m *TwoLegged) exchange(ctx context.Context, gen uint64) {
	req, err := m.builder.Build(m.authCtx.AccessTokenURL, nil, nil)
	if err != nil {
		m.finish(gen, nil, &HandshakeError{Phase: PhaseAccessToken, Err: err})
		return
	}
	resp, err := m.transport.Do(ctx, req)
	params, err := readTokenResponse(PhaseAccessToken, resp, err)
	m.finish(gen, params, err)
}

func (m *TwoLegged) finish(gen uint64, params map[string]string, err error) {
	m.mu.Lock()
	if gen != m.gen || m.discarded {
		m.mu.Unlock()
		return
	}
	to := Authenticated
	if err != nil {
		to = Failed
	}
	if checkErr := twoLeggedTransitions.Check(m.state, to); checkErr != nil {
		m.mu.Unlock()
		m.logger.Error("rejected transition", "error", checkErr)
		return
	}
	if err == nil {
		if token, tokErr := tokenFromParams(params); tokErr == nil {
			m.store.Set(AccessToken, token)
		}
		m.store.SetParams(params)
	}
	m.state = to
	m.err = err
	m.mu.Unlock()

	m.notifyState(ExchangingToken, to)
	if err != nil {
		m.logger.Warn("two-legged exchange failed", "error", err)
		m.notifyFailure(err)
		return
	}

	m.logger.Info("two-legged exchange complete", "parameters", len(params))
	m.delegate.Notify("succeeded", func(d TwoLeggedDelegate) {
		if o, ok := notify.As[ParameterObserver](d); ok {
			o.AuthenticationDidReturnParameters(params)
		}
		if o, ok := notify.As[SuccessObserver](d); ok {
			o.AuthenticationDidSucceed()
		}
	})
}

func (m *TwoLegged) notifyState(from, to HandshakeState) {
	m.logger.Debug("state changed", "from", from.String(), "to", to.String())
	m.delegate.Notify("state_changed", func(d TwoLeggedDelegate) {
		if o, ok := notify.As[StateObserver](d); ok {
			o.HandshakeStateDidChange(from, to)
		}
	})
}

func (m *TwoLegged) notifyFailure(err error) {
	m.delegate.Notify("failed", func(d TwoLeggedDelegate) {
		if o, ok := notify.As[FailureObserver](d); ok {
			o.AuthenticationDidFail(err)
		}
	})
}
