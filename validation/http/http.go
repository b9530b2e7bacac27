// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package http provides validation functions for HTTP headers and endpoint URLs.
package http

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const (
	maxHeaderNameLength  = 256
	maxHeaderValueLength = 8192
)

// ValidateHeaderName validates that a string is a valid HTTP header name per RFC 7230.
// It checks for CRLF injection, control characters, and ensures RFC token compliance.
func ValidateHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name cannot be empty")
	}

	if len(name) > maxHeaderNameLength {
		return fmt.Errorf("header name exceeds maximum length of %d bytes", maxHeaderNameLength)
	}

	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("invalid HTTP header name: contains invalid characters")
	}

	return nil
}

// ValidateHeaderValue validates that a string is a valid HTTP header value per RFC 7230.
// It checks for CRLF injection and control characters.
func ValidateHeaderValue(value string) error {
	if value == "" {
		return fmt.Errorf("header value cannot be empty")
	}

	if len(value) > maxHeaderValueLength {
		return fmt.Errorf("header value exceeds maximum length of %d bytes", maxHeaderValueLength)
	}

	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid HTTP header value: contains control characters")
	}

	return nil
}

// ParseEndpointURL parses raw and validates it with ValidateEndpoint.
func ParseEndpointURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("endpoint URL cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if err := ValidateEndpoint(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// ValidateEndpoint checks that u can be used as a token endpoint or a
// discovery subject:
//   - scheme is http or https
//   - host is present
//   - no fragment
func ValidateEndpoint(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("endpoint URL cannot be nil")
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return fmt.Errorf("endpoint URL must include a scheme (e.g., https://): %s", u)
	default:
		return fmt.Errorf("endpoint URL scheme must be http or https: %s", u)
	}

	if u.Host == "" {
		return fmt.Errorf("endpoint URL must include a host: %s", u)
	}

	if u.Fragment != "" {
		return fmt.Errorf("endpoint URL must not contain fragments (#): %s", u)
	}

	return nil
}
