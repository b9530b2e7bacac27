// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package transport is the network boundary shared by the OAuth handshake and
LRDD discovery.

A Transport accepts a Request and delivers exactly one Response or one error.
Non-2xx statuses are not errors at this layer; callers decide what a status
means for their protocol step. Transport failures (DNS, connection, timeout,
cancellation) are reported as *Error and match ErrRequestFailed:

	resp, err := t.Do(ctx, &transport.Request{Method: http.MethodGet, URL: u})
	if errors.Is(err, transport.ErrRequestFailed) {
		// the server was never reached or the exchange broke
	}

HTTPTransport is the net/http implementation. Func adapts a plain function,
which is convenient for scripted exchanges in tests; a gomock mock lives in
the mocks sub-package.
*/
package transport
