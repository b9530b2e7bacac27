// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"fmt"

	"github.com/stacklok/toolhive-oauth1/internal/fsm"
)

// State is the progress of a Resolver.
type State int

const (
	// Idle is the state before the first LocateResource call.
	Idle State = iota
	RequestingURI
	SearchingLinkElements
	SearchingLinkHeaders
	RequestingHostMeta
	SearchingHostMeta
	ResourceLocated
	LookupFailed
)

var stateNames = [...]string{
	"Idle",
	"RequestingURI",
	"SearchingLinkElements",
	"SearchingLinkHeaders",
	"RequestingHostMeta",
	"SearchingHostMeta",
	"ResourceLocated",
	"LookupFailed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether a search has finished.
func (s State) Terminal() bool {
	return s == ResourceLocated || s == LookupFailed
}

// InFlight reports whether a search is running.
func (s State) InFlight() bool {
	return s != Idle && !s.Terminal()
}

var transitions = fsm.NewTable("discovery", map[State][]State{
	Idle:                  {RequestingURI},
	RequestingURI:         {SearchingLinkElements, RequestingHostMeta},
	SearchingLinkElements: {ResourceLocated, SearchingLinkHeaders},
	SearchingLinkHeaders:  {ResourceLocated, RequestingHostMeta},
	RequestingHostMeta:    {SearchingHostMeta, LookupFailed},
	SearchingHostMeta:     {ResourceLocated, LookupFailed},
	ResourceLocated:       {RequestingURI},
	LookupFailed:          {RequestingURI},
})
