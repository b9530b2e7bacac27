// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package oauth implements the OAuth 1.0a handshakes (RFC 5849) as
// asynchronous state machines.
//
// # Three-legged
//
// ThreeLegged obtains a request token, sends the user to the service
// provider, and exchanges the authorized request token for an access token:
//
//	Idle -> RequestingToken -> AwaitingUserAuthorization -> ExchangingToken -> Authenticated
//
// Any failure enters Failed. With WithRestartOnFail a failed request token
// step is retried once per Authenticate call.
//
//	m, err := oauth.NewThreeLegged(authCtx, transport.NewHTTPTransport(), delegate)
//	if err != nil {
//		return err
//	}
//	m.Authenticate()
//	// later, from the callback handler:
//	err = m.HandleCallback(callbackURL)
//
// # Two-legged
//
// TwoLegged signs a single request to the access token endpoint with the
// consumer credentials and hands the raw response parameters to its
// delegate.
//
// # Delegates
//
// Delegates are held through a notify.Notifier. Optional delegate methods
// are separate interfaces (VerifierProvider, SuccessObserver,
// FailureObserver, ParameterObserver, StateObserver, ...) and are called
// only when the delegate implements them.
//
// # Callback URLs
//
// ValidateCallbackURL checks an oauth_callback value with the redirect URI
// rules of RFC 6749 Section 3.1.2 and RFC 8252, accepting "oob".
package oauth
