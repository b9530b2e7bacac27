// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package logging builds the [log/slog] loggers used by the handshake and
discovery components and by the oauth1ctl command.

	logger := logging.New(
		logging.WithFormat(logging.FormatText),
		logging.WithLevel(slog.LevelDebug),
		logging.WithAttrs(slog.String("component", "discovery")),
	)

Configuration strings are converted with [ParseFormat] and [ParseLevel].

Attributes that carry credentials (consumer_secret, oauth_token_secret,
oauth_signature, oauth_verifier, authorization) are always written as
"[REDACTED]", so a component may log a full parameter set without leaking
secrets.
*/
package logging
