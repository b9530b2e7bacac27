// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"errors"
	"fmt"
)

// Kind classifies a discovery Error.
type Kind int

const (
	// KindAlreadyInProgress rejects LocateResource while a search runs.
	KindAlreadyInProgress Kind = iota + 1
	// KindInvalidSubject rejects a subject that is not an absolute http(s) URL.
	KindInvalidSubject
	// KindTransport reports a network failure fetching host-meta.
	KindTransport
	// KindNotFound reports that every strategy was exhausted, or that
	// host-meta answered with an error status.
	KindNotFound
	// KindMalformedDocument reports a host-meta document that cannot be parsed.
	KindMalformedDocument
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyInProgress:
		return "already in progress"
	case KindInvalidSubject:
		return "invalid subject"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindMalformedDocument:
		return "malformed document"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type of this package.
type Error struct {
	Kind Kind
	// URL is the subject or document the error relates to.
	URL string
	Err error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrAlreadyInProgress = &Error{Kind: KindAlreadyInProgress}
	ErrInvalidSubject    = &Error{Kind: KindInvalidSubject}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrMalformedDocument = &Error{Kind: KindMalformedDocument}
)

// ErrDiscarded is returned by LocateResource after Discard.
var ErrDiscarded = errors.New("resolver discarded")

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "discovery: " + e.Kind.String()
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
