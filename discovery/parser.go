// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/http"
	"net/url"
)

// Parser extracts candidate links from the documents a Resolver fetches.
// Returned hrefs must be absolute; relative references are resolved
// against base.
type Parser interface {
	LinkElements(body []byte, base *url.URL) ([]Link, error)
	LinkHeaders(header http.Header, base *url.URL) ([]Link, error)
	HostMeta(contentType string, body []byte, base *url.URL) ([]Link, error)
}

// DefaultParser understands HTML, RFC 8288 Link headers, and host-meta in
// both its XRD and JRD forms.
type DefaultParser struct{}

var _ Parser = DefaultParser{}
