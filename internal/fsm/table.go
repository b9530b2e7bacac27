// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package fsm

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the constraint satisfied by machine state enums.
type State interface {
	comparable
	fmt.Stringer
}

// TransitionError reports a transition missing from a Table.
type TransitionError struct {
	Machine string
	From    string
	To      string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Machine, e.From, e.To)
}

// Is makes every *TransitionError match ErrInvalidTransition.
func (*TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Table is a closed set of allowed transitions.
type Table[S State] struct {
	machine string
	edges   map[S]map[S]struct{}
}

// NewTable builds a table from an adjacency list.
func NewTable[S State](machine string, edges map[S][]S) *Table[S] {
	t := &Table[S]{machine: machine, edges: make(map[S]map[S]struct{}, len(edges))}
	for from, tos := range edges {
		set := make(map[S]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		t.edges[from] = set
	}
	return t
}

// Allowed reports whether from -> to is in the table.
func (t *Table[S]) Allowed(from, to S) bool {
	_, ok := t.edges[from][to]
	return ok
}

// Check returns nil for an allowed transition and a *TransitionError
// otherwise. When built with the fsmdebug tag it panics instead.
func (t *Table[S]) Check(from, to S) error {
	if t.Allowed(from, to) {
		return nil
	}
	err := &TransitionError{Machine: t.machine, From: from.String(), To: to.String()}
	if Strict {
		panic(err)
	}
	return err
}
