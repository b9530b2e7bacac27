// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-oauth1/httperr"
	"github.com/stacklok/toolhive-oauth1/transport"
)

func newTestThreeLegged(t *testing.T, p *fakeProvider, d *recordingDelegate, opts ...Option) *ThreeLegged {
	t.Helper()
	m, err := NewThreeLegged(p.authContext(), transport.NewHTTPTransport(), d, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Discard)
	return m
}

func TestThreeLegged_Handshake(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	cb, _ := url.Parse("http://127.0.0.1:9999/callback")
	d := &recordingDelegate{callback: cb, autoOpen: true}
	m := newTestThreeLegged(t, p, d)

	m.Authenticate()
	m.Wait()

	require.Equal(t, AwaitingUserAuthorization, m.State())
	authURL := m.AuthorizationURL()
	require.NotNil(t, authURL)
	assert.Equal(t, "/authorize", authURL.Path)
	assert.Equal(t, testRequestToken, authURL.Query().Get(ParamToken))
	assert.Equal(t, cb.String(), authURL.Query().Get(ParamCallback))
	assert.Equal(t, testRequestToken, m.Tokens().Token(RequestToken).Key)
	assert.Equal(t, []string{cb.String()}, p.callbackValues())

	redirect, _ := url.Parse(cb.String() + "?oauth_token=" + testRequestToken + "&oauth_verifier=" + testVerifier)
	require.NoError(t, m.HandleCallback(redirect))
	m.Wait()

	require.Equal(t, Authenticated, m.State())
	require.NoError(t, m.Err())
	access := m.Tokens().Token(AccessToken)
	require.NotNil(t, access)
	assert.Equal(t, "access-token", access.Key)
	assert.Equal(t, "access-secret", access.Secret)
	assert.Equal(t, map[string]string{"user_id": "42", "screen_name": "alice"}, access.Extra)
	assert.Nil(t, m.Tokens().Token(RequestToken), "request token is dropped after the exchange")
	assert.Nil(t, m.AuthorizationURL())

	states, succeeded, failures, params := d.snapshot()
	assert.Equal(t, []HandshakeState{RequestingToken, AwaitingUserAuthorization, ExchangingToken, Authenticated}, states)
	assert.Equal(t, 1, succeeded)
	assert.Empty(t, failures)
	require.Len(t, params, 1)
	assert.Equal(t, "42", params[0]["user_id"])
}

func TestThreeLegged_OutOfBandWithVerifierProvider(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	d := &recordingDelegate{verifier: testVerifier}
	m := newTestThreeLegged(t, p, d)

	m.Authenticate()
	m.Wait()

	// Declining automatic authorization parks the handshake with the token held.
	require.Equal(t, Idle, m.State())
	require.NotNil(t, m.Tokens().Token(RequestToken))
	assert.Equal(t, []string{OutOfBand}, p.callbackValues())
	assert.False(t, m.AuthorizationURL().Query().Has(ParamCallback))

	require.NoError(t, m.CompleteAuthorization("", ""))
	m.Wait()

	assert.Equal(t, Authenticated, m.State())
	states, succeeded, _, _ := d.snapshot()
	assert.Equal(t, []HandshakeState{RequestingToken, AwaitingUserAuthorization, Idle, ExchangingToken, Authenticated}, states)
	assert.Equal(t, 1, succeeded)
}

func TestThreeLegged_CompleteFromDelegate(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	d := &recordingDelegate{autoOpen: true}
	m := newTestThreeLegged(t, p, d)
	var completeErr error
	d.onAuthorize = func(authURL, _ *url.URL) {
		completeErr = m.CompleteAuthorization(authURL.Query().Get(ParamToken), testVerifier)
	}

	m.Authenticate()
	m.Wait()

	require.NoError(t, completeErr)
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, int32(1), p.accessTokenCalls.Load())
}

func TestThreeLegged_CompleteAuthorizationErrors(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	d := &recordingDelegate{autoOpen: true}
	m := newTestThreeLegged(t, p, d)

	require.ErrorIs(t, m.CompleteAuthorization(testRequestToken, testVerifier), ErrNoPendingAuthorization)

	m.Authenticate()
	m.Wait()
	require.Equal(t, AwaitingUserAuthorization, m.State())

	assert.ErrorIs(t, m.CompleteAuthorization("other-token", testVerifier), ErrTokenMismatch)
	assert.ErrorIs(t, m.CompleteAuthorization(testRequestToken, ""), ErrMissingVerifier)
	assert.ErrorIs(t, m.HandleCallback(nil), ErrNoPendingAuthorization)

	denied, _ := url.Parse("http://127.0.0.1/callback?denied=" + testRequestToken)
	assert.ErrorIs(t, m.HandleCallback(denied), ErrAuthorizationDenied)
	assert.Equal(t, AwaitingUserAuthorization, m.State())
	assert.Zero(t, p.accessTokenCalls.Load())
}

func TestThreeLegged_RestartOnFail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		restart       bool
		failures      int32
		wantCalls     int32
		wantState     HandshakeState
		wantStates    []HandshakeState
		wantFailCount int
	}{
		{
			name:      "single failure is retried",
			restart:   true,
			failures:  1,
			wantCalls: 2,
			wantState: AwaitingUserAuthorization,
			wantStates: []HandshakeState{
				RequestingToken, Failed, RequestingToken, AwaitingUserAuthorization,
			},
		},
		{
			name:      "second failure is terminal",
			restart:   true,
			failures:  2,
			wantCalls: 2,
			wantState: Failed,
			wantStates: []HandshakeState{
				RequestingToken, Failed, RequestingToken, Failed,
			},
			wantFailCount: 1,
		},
		{
			name:          "no restart without the flag",
			restart:       false,
			failures:      1,
			wantCalls:     1,
			wantState:     Failed,
			wantStates:    []HandshakeState{RequestingToken, Failed},
			wantFailCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newFakeProvider(t)
			p.failRequestToken.Store(tt.failures)
			d := &recordingDelegate{autoOpen: true}
			m := newTestThreeLegged(t, p, d, WithRestartOnFail(tt.restart))

			m.Authenticate()
			m.Wait()

			assert.Equal(t, tt.wantState, m.State())
			assert.Equal(t, tt.wantCalls, p.requestTokenCalls.Load())
			states, _, failures, _ := d.snapshot()
			assert.Equal(t, tt.wantStates, states)
			require.Len(t, failures, tt.wantFailCount)
			if tt.wantFailCount > 0 {
				var herr *HandshakeError
				require.ErrorAs(t, failures[0], &herr)
				assert.Equal(t, PhaseRequestToken, herr.Phase)
				assert.Equal(t, http.StatusInternalServerError, httperr.Code(herr))
				assert.ErrorIs(t, m.Err(), httperr.ErrUnexpectedStatus)
			}
		})
	}
}

func TestThreeLegged_RestartLatchResetsOnAuthenticate(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	p.failRequestToken.Store(100)
	d := &recordingDelegate{autoOpen: true}
	m := newTestThreeLegged(t, p, d, WithRestartOnFail(true))

	m.Authenticate()
	m.Wait()
	require.Equal(t, Failed, m.State())
	require.Equal(t, int32(2), p.requestTokenCalls.Load())

	m.Authenticate()
	m.Wait()
	assert.Equal(t, Failed, m.State())
	assert.Equal(t, int32(4), p.requestTokenCalls.Load())
}

func TestThreeLegged_MalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "oauth_token=abc"},
		{name: "missing token", body: "oauth_token_secret=abc"},
		{name: "callback refused", body: "oauth_token=a&oauth_token_secret=b&oauth_callback_confirmed=false"},
		{name: "not form encoded", body: "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newFakeProvider(t)
			p.requestTokenBody = tt.body
			d := &recordingDelegate{autoOpen: true}
			m := newTestThreeLegged(t, p, d)

			m.Authenticate()
			m.Wait()

			require.Equal(t, Failed, m.State())
			_, _, failures, _ := d.snapshot()
			require.Len(t, failures, 1)
			var herr *HandshakeError
			require.ErrorAs(t, failures[0], &herr)
			assert.Equal(t, PhaseResponseMalformed, herr.Phase)
			assert.ErrorIs(t, herr, ErrResponseMalformed)
		})
	}
}

func TestThreeLegged_ExchangeFailureIsTerminal(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	p.accessTokenCode = http.StatusUnauthorized
	d := &recordingDelegate{autoOpen: true}
	m := newTestThreeLegged(t, p, d, WithRestartOnFail(true))

	m.Authenticate()
	m.Wait()
	require.NoError(t, m.CompleteAuthorization(testRequestToken, testVerifier))
	m.Wait()

	assert.Equal(t, Failed, m.State())
	assert.Equal(t, int32(1), p.requestTokenCalls.Load())
	var herr *HandshakeError
	require.ErrorAs(t, m.Err(), &herr)
	assert.Equal(t, PhaseAccessToken, herr.Phase)
	assert.Equal(t, http.StatusUnauthorized, httperr.Code(herr))
	assert.Nil(t, m.Tokens().Token(AccessToken))
}

// blockingTransport holds every request until released and tracks how many
// are in flight at once.
type blockingTransport struct {
	release  chan struct{}
	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	response *transport.Response
}

func newBlockingTransport(body string) *blockingTransport {
	return &blockingTransport{
		release:  make(chan struct{}),
		response: &transport.Response{StatusCode: http.StatusOK, Body: []byte(body)},
	}
}

func (b *blockingTransport) Do(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
	b.calls.Add(1)
	n := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-b.release:
		return b.response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestThreeLegged_DiscardSuppressesLateCompletion(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	bt := newBlockingTransport("oauth_token=rt&oauth_token_secret=rs")
	d := &recordingDelegate{autoOpen: true}
	m, err := NewThreeLegged(p.authContext(), bt, d)
	require.NoError(t, err)

	m.Authenticate()
	m.Discard()
	close(bt.release)
	m.Wait()

	states, succeeded, failures, _ := d.snapshot()
	assert.Equal(t, []HandshakeState{RequestingToken}, states)
	assert.Zero(t, succeeded)
	assert.Empty(t, failures)
	assert.Equal(t, RequestingToken, m.State())
	assert.Nil(t, m.Tokens().Token(RequestToken))

	m.Authenticate()
	m.Wait()
	assert.Equal(t, RequestingToken, m.State(), "a discarded method stays inert")
}

func TestThreeLegged_AuthenticateSupersedesInFlightAttempt(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	bt := newBlockingTransport("oauth_token=rt&oauth_token_secret=rs")
	d := &recordingDelegate{autoOpen: true}
	m, err := NewThreeLegged(p.authContext(), bt, d)
	require.NoError(t, err)
	t.Cleanup(m.Discard)

	m.Authenticate()
	m.Authenticate()
	close(bt.release)
	m.Wait()

	assert.Equal(t, AwaitingUserAuthorization, m.State())
	assert.Equal(t, int32(1), bt.peak.Load(), "requests never overlap")
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.authURLs, 1, "the superseded attempt reports nothing")
}

func TestNewThreeLegged_Validation(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	d := &recordingDelegate{}

	_, err := NewThreeLegged(p.authContext(), nil, d)
	assert.Error(t, err)

	_, err = NewThreeLegged(p.authContext(), transport.NewHTTPTransport(), nil)
	assert.Error(t, err)

	authCtx := p.authContext()
	authCtx.AuthorizeTokenURL = nil
	_, err = NewThreeLegged(authCtx, transport.NewHTTPTransport(), d)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestThreeLegged_InvalidCallbackFailsRequestStep(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	cb, _ := url.Parse("http://consumer.example.com/callback")
	d := &recordingDelegate{callback: cb}
	m := newTestThreeLegged(t, p, d, WithCallbackPolicy(CallbackPolicyStrict))

	m.Authenticate()
	m.Wait()

	assert.Equal(t, Failed, m.State())
	assert.Zero(t, p.requestTokenCalls.Load())
	var herr *HandshakeError
	require.ErrorAs(t, m.Err(), &herr)
	assert.Equal(t, PhaseRequestToken, herr.Phase)
	assert.False(t, errors.Is(herr, ErrResponseMalformed))
}

func TestThreeLegged_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(t)
	d := &recordingDelegate{autoOpen: true}
	m := newTestThreeLegged(t, p, d)

	var wg sync.WaitGroup
	m.Authenticate()
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.State()
			_ = m.Tokens().Token(RequestToken)
			_ = m.AuthorizationURL()
		}()
	}
	wg.Wait()
	m.Wait()
	assert.Equal(t, AwaitingUserAuthorization, m.State())
}
