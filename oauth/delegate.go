// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import "net/url"

// ThreeLeggedDelegate is the required part of a three-legged delegate. The
// optional capabilities below are discovered with type assertions.
type ThreeLeggedDelegate interface {
	// CallbackURLForCompletedUserAuthorization returns the oauth_callback
	// URL. A nil URL selects out-of-band ("oob") authorization.
	CallbackURLForCompletedUserAuthorization() *url.URL

	// AutomaticallyRequestAuthentication is called once the request token
	// is held. Returning true means the delegate has sent the user to
	// authURL and will resume the handshake through CompleteAuthorization or
	// HandleCallback. Returning false parks the method in Idle so the owner
	// can drive authorization manually.
	AutomaticallyRequestAuthentication(authURL, callbackURL *url.URL) bool
}

// TwoLeggedDelegate has only optional members: ParameterObserver,
// SuccessObserver, FailureObserver and StateObserver.
type TwoLeggedDelegate = any

// VerifierProvider supplies the oauth_verifier when the owner completes
// authorization without one, as in PIN based flows.
type VerifierProvider interface {
	VerifierForCompletedUserAuthorization() string
}

// RequestTokenParameterProvider adds parameters to the request token request.
type RequestTokenParameterProvider interface {
	AdditionalRequestTokenParameters() map[string]string
}

// SuccessObserver is told when a handshake reaches Authenticated.
type SuccessObserver interface {
	AuthenticationDidSucceed()
}

// FailureObserver receives terminal handshake errors.
type FailureObserver interface {
	AuthenticationDidFail(err error)
}

// ParameterObserver receives the raw parameters of the final token response.
type ParameterObserver interface {
	AuthenticationDidReturnParameters(params map[string]string)
}

// StateObserver sees every state change.
type StateObserver interface {
	HandshakeStateDidChange(from, to HandshakeState)
}
