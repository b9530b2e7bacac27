// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package fsm holds the pieces shared by the handshake and discovery state
// machines: transition tables and a Runner that keeps each machine's network
// steps strictly sequential.
//
// Build with -tags fsmdebug to turn an invalid transition into a panic.
package fsm
