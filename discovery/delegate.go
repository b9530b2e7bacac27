// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import "net/url"

// Delegate receives located resources.
type Delegate interface {
	LocatedResource(mimeType string, sourceURL, resourceURL *url.URL)
}

// FailureObserver is told when a search ends in LookupFailed. The error is
// always a *Error.
type FailureObserver interface {
	LookupDidFail(err error)
}

// StateObserver sees every state change.
type StateObserver interface {
	DiscoveryStateDidChange(from, to State)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(mimeType string, sourceURL, resourceURL *url.URL)

// LocatedResource calls f.
func (f DelegateFunc) LocatedResource(mimeType string, sourceURL, resourceURL *url.URL) {
	f(mimeType, sourceURL, resourceURL)
}
