// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-oauth1/signature"
)

const (
	testConsumerKey    = "consumer-key"
	testConsumerSecret = "consumer-secret"
	testRequestToken   = "request-token"
	testRequestSecret  = "request-secret"
	testVerifier       = "verifier-123"
)

// fakeProvider is a minimal OAuth 1.0a service provider that checks
// HMAC-SHA1 signatures.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	requestTokenCalls atomic.Int32
	accessTokenCalls  atomic.Int32

	// failRequestToken makes the first N request token calls return 500.
	failRequestToken atomic.Int32
	requestTokenBody string
	accessTokenBody  string
	accessTokenCode  int

	mu        sync.Mutex
	callbacks []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		t:                t,
		requestTokenBody: fmt.Sprintf("oauth_token=%s&oauth_token_secret=%s&oauth_callback_confirmed=true", testRequestToken, testRequestSecret),
		accessTokenBody:  "oauth_token=access-token&oauth_token_secret=access-secret&user_id=42&screen_name=alice",
		accessTokenCode:  http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /request_token", p.handleRequestToken)
	mux.HandleFunc("POST /access_token", p.handleAccessToken)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) url(path string) *url.URL {
	u, err := url.Parse(p.server.URL + path)
	require.NoError(p.t, err)
	return u
}

func (p *fakeProvider) authContext() AuthContext {
	return AuthContext{
		ConsumerKey:       testConsumerKey,
		ConsumerSecret:    testConsumerSecret,
		RequestTokenURL:   p.url("/request_token"),
		AuthorizeTokenURL: p.url("/authorize"),
		AccessTokenURL:    p.url("/access_token"),
		SignatureMethod:   signature.HMACSHA1,
	}
}

func (p *fakeProvider) handleRequestToken(w http.ResponseWriter, r *http.Request) {
	p.requestTokenCalls.Add(1)
	params, ok := p.verify(w, r, "")
	if !ok {
		return
	}
	p.mu.Lock()
	p.callbacks = append(p.callbacks, params.Get(ParamCallback))
	p.mu.Unlock()

	if p.failRequestToken.Load() > 0 {
		p.failRequestToken.Add(-1)
		http.Error(w, "try again", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ContentTypeForm)
	_, _ = io.WriteString(w, p.requestTokenBody)
}

func (p *fakeProvider) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	p.accessTokenCalls.Add(1)
	params, ok := p.verify(w, r, testRequestSecret)
	if !ok {
		return
	}
	if params.Get(ParamToken) != testRequestToken || params.Get(ParamVerifier) != testVerifier {
		http.Error(w, "bad verifier", http.StatusUnauthorized)
		return
	}
	if p.accessTokenCode != http.StatusOK {
		http.Error(w, "denied", p.accessTokenCode)
		return
	}
	w.Header().Set("Content-Type", ContentTypeForm)
	_, _ = io.WriteString(w, p.accessTokenBody)
}

func (p *fakeProvider) callbackValues() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.callbacks...)
}

// verify recomputes the signature and returns the protocol and body parameters.
func (p *fakeProvider) verify(w http.ResponseWriter, r *http.Request, tokenSecret string) (url.Values, bool) {
	header, err := ParseAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	all := url.Values{}
	for k, vs := range header {
		all[k] = append(all[k], vs...)
	}
	for k, vs := range r.PostForm {
		all[k] = append(all[k], vs...)
	}
	got := all.Get(ParamSignature)

	want, err := signature.NewSigner(nil).Sign(signature.Input{
		Method:          r.Method,
		URL:             &url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery},
		Parameters:      all,
		ConsumerSecret:  testConsumerSecret,
		TokenSecret:     tokenSecret,
		SignatureMethod: signature.HMACSHA1,
	})
	if err != nil || got != want || all.Get(ParamConsumerKey) != testConsumerKey {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return nil, false
	}
	return all, true
}

// recordingDelegate implements every delegate capability.
type recordingDelegate struct {
	callback *url.URL
	autoOpen bool
	verifier string
	extra    map[string]string
	// onAuthorize runs inside AutomaticallyRequestAuthentication.
	onAuthorize func(authURL, callbackURL *url.URL)

	mu        sync.Mutex
	authURLs  []*url.URL
	states    []HandshakeState
	succeeded int
	failures  []error
	params    []map[string]string
}

func (d *recordingDelegate) CallbackURLForCompletedUserAuthorization() *url.URL {
	return d.callback
}

func (d *recordingDelegate) AutomaticallyRequestAuthentication(authURL, callbackURL *url.URL) bool {
	d.mu.Lock()
	d.authURLs = append(d.authURLs, authURL)
	d.mu.Unlock()
	if d.onAuthorize != nil {
		d.onAuthorize(authURL, callbackURL)
	}
	return d.autoOpen
}

func (d *recordingDelegate) VerifierForCompletedUserAuthorization() string {
	return d.verifier
}

func (d *recordingDelegate) AdditionalRequestTokenParameters() map[string]string {
	return d.extra
}

func (d *recordingDelegate) AuthenticationDidSucceed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.succeeded++
}

func (d *recordingDelegate) AuthenticationDidFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, err)
}

func (d *recordingDelegate) AuthenticationDidReturnParameters(params map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = append(d.params, params)
}

func (d *recordingDelegate) HandshakeStateDidChange(_, to HandshakeState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, to)
}

func (d *recordingDelegate) snapshot() (states []HandshakeState, succeeded int, failures []error, params []map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]HandshakeState(nil), d.states...), d.succeeded,
		append([]error(nil), d.failures...), append([]map[string]string(nil), d.params...)
}
