// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"fmt"

	"github.com/stacklok/toolhive-oauth1/internal/fsm"
)

// HandshakeState is the state of an authentication method.
type HandshakeState int

const (
	Idle HandshakeState = iota
	RequestingToken
	AwaitingUserAuthorization
	ExchangingToken
	Authenticated
	Failed
)

func (s HandshakeState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case RequestingToken:
		return "RequestingToken"
	case AwaitingUserAuthorization:
		return "AwaitingUserAuthorization"
	case ExchangingToken:
		return "ExchangingToken"
	case Authenticated:
		return "Authenticated"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("HandshakeState(%d)", int(s))
	}
}

// Terminal reports whether no further transition happens without a call
// from the owner.
func (s HandshakeState) Terminal() bool {
	return s == Authenticated || s == Failed
}

// Authenticate itself may be called from any state; it is a reset, not a
// transition, and is therefore absent from these tables.
var threeLeggedTransitions = fsm.NewTable("three-legged", map[HandshakeState][]HandshakeState{
	Idle:                      {ExchangingToken},
	RequestingToken:           {AwaitingUserAuthorization, Failed},
	AwaitingUserAuthorization: {Idle, ExchangingToken},
	ExchangingToken:           {Authenticated, Failed},
	Failed:                    {RequestingToken},
})

var twoLeggedTransitions = fsm.NewTable("two-legged", map[HandshakeState][]HandshakeState{
	Idle:            {ExchangingToken},
	ExchangingToken: {Authenticated, Failed},
	Authenticated:   {ExchangingToken},
	Failed:          {ExchangingToken},
})
