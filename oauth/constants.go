// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

// Protocol parameter names as defined by RFC 5849 and OAuth 1.0a.
const (
	ParamConsumerKey       = "oauth_consumer_key"
	ParamToken             = "oauth_token"
	ParamTokenSecret       = "oauth_token_secret"
	ParamSignatureMethod   = "oauth_signature_method"
	ParamSignature         = "oauth_signature"
	ParamTimestamp         = "oauth_timestamp"
	ParamNonce             = "oauth_nonce"
	ParamVersion           = "oauth_version"
	ParamCallback          = "oauth_callback"
	ParamCallbackConfirmed = "oauth_callback_confirmed"
	ParamVerifier          = "oauth_verifier"
)

// ProtocolParamPrefix marks parameters that travel in the Authorization header.
const ProtocolParamPrefix = "oauth_"

// Version is the only oauth_version value this package sends.
const Version = "1.0"

// OutOfBand is the oauth_callback value used when the consumer cannot
// receive a callback (RFC 5849 Section 2.1).
const OutOfBand = "oob"

// ContentTypeForm is the media type of token requests and responses.
const ContentTypeForm = "application/x-www-form-urlencoded"
