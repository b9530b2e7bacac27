// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discovery locates the endpoint serving a media type for a subject
// URL using LRDD style discovery (RFC 6415).
//
// A Resolver tries, in order and stopping at the first match:
//
//  1. <link> elements in the subject document
//  2. Link headers on the subject response (RFC 8288)
//  3. the host-meta document of the subject's authority, as XRD or JRD
//
// A failed fetch of the subject only disables the first two strategies.
// Results and failures are delivered to a Delegate asynchronously.
//
//	r, err := discovery.NewResolver(transport.NewHTTPTransport(), delegate)
//	if err != nil {
//		return err
//	}
//	subject, _ := url.Parse("https://example.org/alice")
//	if err := r.LocateResource("application/xrd+xml", subject); err != nil {
//		return err
//	}
//	r.Wait()
package discovery
