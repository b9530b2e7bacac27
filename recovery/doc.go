// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic recovery middleware for HTTP handlers.
//
// The loopback callback server wraps its router with this middleware so a
// malformed authorization redirect can never take the waiting CLI down with
// it.
//
//	r := chi.NewRouter()
//	r.Use(recovery.Middleware(logger))
package recovery
