// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !fsmdebug

package fsm

// Strict makes Table.Check panic on an invalid transition.
const Strict = false
