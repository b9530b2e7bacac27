// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observer interface {
	Observe(string)
}

type recorder struct {
	events []string
}

func (r *recorder) Observe(e string) { r.events = append(r.events, e) }

type quiet struct{}

func TestNotifier_DeliversWhileAttached(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := New[observer](rec, slog.New(slog.DiscardHandler))

	require.True(t, n.Notify("first", func(o observer) { o.Observe("first") }))

	n.Detach()
	assert.False(t, n.Notify("second", func(o observer) { o.Observe("second") }))
	assert.Equal(t, []string{"first"}, rec.events)
}

func TestNotifier_RecoversDelegatePanic(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := New[observer](rec, slog.New(slog.DiscardHandler))
	var delivered bool
	require.NotPanics(t, func() {
		delivered = n.Notify("boom", func(observer) { panic("delegate bug") })
	})
	assert.False(t, delivered)
	assert.True(t, n.Notify("after", func(o observer) { o.Observe("after") }), "a panicking delegate stays attached")
	assert.Equal(t, []string{"after"}, rec.events)
}

func TestNotifier_DelegateMayReenter(t *testing.T) {
	t.Parallel()

	var n *Notifier[observer]
	rec := &recorder{}
	n = New[observer](rec, nil)

	require.True(t, n.Notify("outer", func(observer) {
		// Re-entering the notifier from a callback must not deadlock.
		n.Notify("inner", func(o observer) { o.Observe("inner") })
	}))
	assert.Equal(t, []string{"inner"}, rec.events)
}

func TestAs(t *testing.T) {
	t.Parallel()

	o, ok := As[observer](any(&recorder{}))
	assert.True(t, ok)
	assert.NotNil(t, o)

	_, ok = As[observer](any(quiet{}))
	assert.False(t, ok)
}
