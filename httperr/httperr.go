// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httperr provides error types that carry HTTP status codes.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus is the sentinel wrapped by FromStatus.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// CodedError wraps an error with an HTTP status code.
// Handshake and discovery failures use it to keep the status of the remote
// response available to delegates; the callback server uses it to pick the
// status of its own responses.
type CodedError struct {
	err  error
	code int
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is() and errors.As() compatibility.
func (e *CodedError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *CodedError) HTTPCode() int {
	return e.code
}

// WithCode wraps an error with an HTTP status code.
// If err is nil, WithCode returns nil.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &CodedError{err: err, code: code}
}

// Code extracts the HTTP status code from an error.
// It unwraps the error chain looking for a CodedError.
// If no CodedError is found, it returns http.StatusInternalServerError (500).
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.code
	}

	return http.StatusInternalServerError
}

// New creates a new error with the given message and HTTP status code.
func New(message string, code int) error {
	return &CodedError{err: errors.New(message), code: code}
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// FromStatus returns nil for a 2xx status and otherwise a CodedError that
// wraps ErrUnexpectedStatus and names the status.
func FromStatus(code int) error {
	if IsSuccess(code) {
		return nil
	}
	return &CodedError{
		err:  fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, code, http.StatusText(code)),
		code: code,
	}
}
