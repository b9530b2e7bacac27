// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package callback receives the OAuth 1.0a authorization redirect on a
// loopback HTTP server and drives an oauth.ThreeLegged handshake from a
// terminal: BrowserDelegate opens the authorization URL in the user's
// browser, and Await feeds the redirect back into the handshake.
package callback
