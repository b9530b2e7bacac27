// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package httperr provides error types with HTTP status codes.

A token endpoint that answers 401 or a host-meta document that answers 404
is not a transport failure, but the caller still needs the status to decide
what went wrong. FromStatus turns a response status into an error that keeps
it:

	if err := httperr.FromStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("request token: %w", err)
	}

	// later, in a delegate
	if httperr.Code(err) == http.StatusUnauthorized {
		// consumer credentials were rejected
	}

CodedError supports errors.Is() and errors.As():

	errors.Is(err, httperr.ErrUnexpectedStatus)

	var coded *httperr.CodedError
	if errors.As(err, &coded) {
		log.Printf("HTTP %d: %s", coded.HTTPCode(), coded.Error())
	}

Servers use the same types to choose a response status:

	http.Error(w, err.Error(), httperr.Code(err))
*/
package httperr
