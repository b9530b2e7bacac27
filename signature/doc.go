// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package signature implements OAuth 1.0 request signing per RFC 5849.

A Signer is a pure function from a request description to a signature
string. The request builder in package oauth collects the protocol
parameters, asks a Signer for the oauth_signature value and places the
result in the Authorization header.

	signer := signature.NewSigner(nil) // no RSA key: PLAINTEXT and HMAC-SHA1 only
	sig, err := signer.Sign(signature.Input{
		Method:          http.MethodPost,
		URL:             endpoint,
		Parameters:      params,
		ConsumerSecret:  "kd94hf93k423kf44",
		TokenSecret:     "pfkkdhi9sl3r4s00",
		SignatureMethod: signature.HMACSHA1,
	})

BaseString and Escape are exported so that servers and tests can reproduce
the exact bytes that were signed.
*/
package signature
