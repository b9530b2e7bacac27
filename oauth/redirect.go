// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ory/fosite"
)

// MaxCallbackURLLength is the maximum allowed length for an oauth_callback value.
const MaxCallbackURLLength = 2048

// CallbackPolicy controls which URI schemes are accepted for oauth_callback.
type CallbackPolicy int

const (
	// CallbackPolicyStrict allows only https and http-loopback schemes.
	CallbackPolicyStrict CallbackPolicy = iota

	// CallbackPolicyAllowPrivateSchemes also allows private-use URI schemes
	// (e.g., myapp://) as used by native applications.
	CallbackPolicyAllowPrivateSchemes
)

// ValidateCallbackURL validates an oauth_callback value. The literal "oob"
// is always accepted.
//
// Validation rules applied:
//   - URI must not exceed MaxCallbackURLLength
//   - URI must be an absolute URI with a scheme
//   - URI must not contain a fragment component
//   - Scheme security per policy:
//   - Strict: only https or http-loopback (RFC 8252 Section 8.4)
//   - AllowPrivateSchemes: also allows private-use schemes (RFC 8252 Section 7.1)
func ValidateCallbackURL(uri string, policy CallbackPolicy) error {
	if uri == OutOfBand {
		return nil
	}
	if len(uri) > MaxCallbackURLLength {
		return fmt.Errorf("oauth_callback too long (maximum %d characters)", MaxCallbackURLLength)
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid oauth_callback format: %w", err)
	}

	if !fosite.IsValidRedirectURI(parsed) {
		return fmt.Errorf("oauth_callback must be an absolute URI without a fragment")
	}

	switch policy {
	case CallbackPolicyStrict:
		if !fosite.IsRedirectURISecureStrict(context.Background(), parsed) {
			return fmt.Errorf("oauth_callback must use http (for loopback) or https scheme")
		}
	case CallbackPolicyAllowPrivateSchemes:
		if !fosite.IsRedirectURISecure(context.Background(), parsed) {
			return fmt.Errorf("oauth_callback must use a secure scheme (https, http for loopback, or a private-use scheme)")
		}
	default:
		return fmt.Errorf("unknown callback policy: %d", policy)
	}

	return nil
}
