// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package fsm

import (
	"context"
	"sync"
)

// Runner executes a machine's asynchronous steps.
//
// Every Start opens a new generation and cancels the context of the previous
// one. Chains of work run on their own goroutine but never overlap: a chain
// first waits for the previously launched chain to return. Code resuming
// after a network round trip calls Current with its generation before acting,
// so completions of a superseded or closed generation become no-ops.
type Runner struct {
	mu     sync.Mutex
	base   context.Context
	stop   context.CancelFunc
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	last   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewRunner returns a Runner whose contexts derive from parent.
func NewRunner(parent context.Context) *Runner {
	if parent == nil {
		parent = context.Background()
	}
	base, stop := context.WithCancel(parent)
	return &Runner{base: base, stop: stop}
}

// Start opens a new generation and schedules fn for it. It returns the new
// generation, or false when the runner is closed.
func (r *Runner) Start(fn func(ctx context.Context, gen uint64)) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	r.ctx, r.cancel = context.WithCancel(r.base)

	gen, ctx := r.gen, r.ctx
	r.launchLocked(func() { fn(ctx, gen) })
	return gen, true
}

// Continue schedules fn as more work for generation gen. It returns false,
// without running fn, when gen is no longer current.
func (r *Runner) Continue(gen uint64, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.gen || r.ctx == nil {
		return false
	}
	ctx := r.ctx
	r.launchLocked(func() { fn(ctx) })
	return true
}

func (r *Runner) launchLocked(fn func()) {
	prev := r.last
	done := make(chan struct{})
	r.last = done

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		fn()
	}()
}

// Current reports whether gen is the live generation.
func (r *Runner) Current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && gen == r.gen
}

// Close cancels all work and invalidates every generation. Later Start and
// Continue calls do nothing.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.gen++
	r.stop()
}

// Wait blocks until every scheduled chain has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
