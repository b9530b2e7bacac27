// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseMalformed indicates a token response without oauth_token or
	// oauth_token_secret, or one that refused the callback.
	ErrResponseMalformed = errors.New("malformed token response")

	// ErrAlreadyInProgress is reported when Authenticate is called on a
	// two-legged method that is still exchanging.
	ErrAlreadyInProgress = errors.New("authentication already in progress")

	// ErrNoPendingAuthorization is returned by CompleteAuthorization when no
	// request token is waiting for user authorization.
	ErrNoPendingAuthorization = errors.New("no pending user authorization")

	// ErrTokenMismatch is returned when a callback names a request token other
	// than the one being authorized.
	ErrTokenMismatch = errors.New("oauth_token does not match the pending request token")

	// ErrMissingVerifier is returned when neither the caller nor the delegate
	// supplies an oauth_verifier.
	ErrMissingVerifier = errors.New("missing oauth_verifier")

	// ErrAuthorizationDenied is returned by HandleCallback when the service
	// provider reports that the user refused access.
	ErrAuthorizationDenied = errors.New("user denied authorization")
)

// Validation errors for AuthContext.
var (
	ErrMissingConsumerKey = errors.New("missing consumer key")
	ErrMissingEndpoint    = errors.New("missing endpoint")
)

// Phase identifies where a handshake failed.
type Phase int

const (
	// PhaseRequestToken is the temporary credential request.
	PhaseRequestToken Phase = iota + 1
	// PhaseAccessToken is the token credential request.
	PhaseAccessToken
	// PhaseResponseMalformed marks a response that could not be used.
	PhaseResponseMalformed
)

func (p Phase) String() string {
	switch p {
	case PhaseRequestToken:
		return "request_token"
	case PhaseAccessToken:
		return "access_token"
	case PhaseResponseMalformed:
		return "response_malformed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// HandshakeError is the error delivered to a FailureObserver.
type HandshakeError struct {
	Phase Phase
	Err   error
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("oauth handshake failed (%s): %v", e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}
