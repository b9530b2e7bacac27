// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package notify routes state machine events to a caller-supplied delegate.
//
// A Notifier holds the delegate as a borrowed handle: the owning machine
// never keeps a delegate alive on its own behalf, and once Detach is called
// every later event is dropped. This is how a discarded handshake or
// discovery makes its late-arriving completions into no-ops.
package notify

import (
	"log/slog"
	"sync"
)

// Notifier delivers events to a delegate of type D while attached.
type Notifier[D any] struct {
	mu       sync.Mutex
	delegate D
	attached bool
	logger   *slog.Logger
}

// New returns a Notifier attached to delegate. A nil logger falls back to
// slog.Default().
func New[D any](delegate D, logger *slog.Logger) *Notifier[D] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier[D]{delegate: delegate, attached: true, logger: logger}
}

// Notify calls fn with the delegate and reports whether it was delivered.
// The delegate is invoked without any lock held, so it may call back into
// the machine that emitted the event. A panicking delegate is logged and
// does not propagate into the machine.
func (n *Notifier[D]) Notify(event string, fn func(D)) bool {
	n.mu.Lock()
	d, ok := n.delegate, n.attached
	n.mu.Unlock()

	if !ok {
		n.logger.Debug("dropping event for detached delegate", "event", event)
		return false
	}

	delivered := true
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				delivered = false
				n.logger.Error("delegate panicked", "event", event, "panic", rec)
			}
		}()
		fn(d)
	}()
	return delivered
}

// Detach releases the delegate. Later events are dropped.
func (n *Notifier[D]) Detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	var zero D
	n.delegate = zero
	n.attached = false
}

// As reports whether the delegate implements the capability C and returns it.
// It is how optional delegate members are queried before invocation.
func As[C any, D any](d D) (C, bool) {
	c, ok := any(d).(C)
	return c, ok
}
