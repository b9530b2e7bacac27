// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package http provides validation functions for HTTP headers and endpoint URLs.

The request builder validates every header it emits, because the OAuth
Authorization header is assembled from caller-supplied parameters:

	if err := http.ValidateHeaderValue(authorization); err != nil {
		// refuse to send the request
	}

Token endpoints and discovery subjects must be absolute http(s) URLs with a
host and without a fragment:

	u, err := http.ParseEndpointURL("https://api.example.com/oauth/request_token")
*/
package http
