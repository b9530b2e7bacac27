// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"crypto/rsa"
	"fmt"
	"net/url"

	"github.com/stacklok/toolhive-oauth1/signature"
	httpval "github.com/stacklok/toolhive-oauth1/validation/http"
)

// AuthContext is the fixed configuration of one authentication method.
type AuthContext struct {
	ConsumerKey    string
	ConsumerSecret string

	RequestTokenURL   *url.URL
	AuthorizeTokenURL *url.URL
	AccessTokenURL    *url.URL

	SignatureMethod signature.Method
	// PrivateKey is required for RSA-SHA1 and ignored otherwise.
	PrivateKey *rsa.PrivateKey
}

// Clone returns a copy whose URLs do not alias the receiver's.
func (c AuthContext) Clone() AuthContext {
	c.RequestTokenURL = cloneURL(c.RequestTokenURL)
	c.AuthorizeTokenURL = cloneURL(c.AuthorizeTokenURL)
	c.AccessTokenURL = cloneURL(c.AccessTokenURL)
	return c
}

// Validate checks the consumer key, the signature method and every endpoint
// that is set. Which endpoints are mandatory depends on the method using the
// context; see RequireThreeLegged and RequireTwoLegged.
func (c AuthContext) Validate() error {
	if c.ConsumerKey == "" {
		return ErrMissingConsumerKey
	}
	switch c.SignatureMethod {
	case signature.PlainText, signature.HMACSHA1:
	case signature.RSASHA1:
		if c.PrivateKey == nil {
			return signature.ErrMissingPrivateKey
		}
	default:
		return fmt.Errorf("%w: %q", signature.ErrUnsupportedMethod, c.SignatureMethod)
	}

	for name, u := range c.endpoints() {
		if u == nil {
			continue
		}
		if err := httpval.ValidateEndpoint(u); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// RequireThreeLegged validates c and checks that all three endpoints are set.
func (c AuthContext) RequireThreeLegged() error {
	if err := c.Validate(); err != nil {
		return err
	}
	for name, u := range c.endpoints() {
		if u == nil {
			return fmt.Errorf("%w: %s", ErrMissingEndpoint, name)
		}
	}
	return nil
}

// RequireTwoLegged validates c and checks that the access token endpoint is set.
func (c AuthContext) RequireTwoLegged() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AccessTokenURL == nil {
		return fmt.Errorf("%w: access token URL", ErrMissingEndpoint)
	}
	return nil
}

func (c AuthContext) endpoints() map[string]*url.URL {
	return map[string]*url.URL{
		"request token URL":   c.RequestTokenURL,
		"authorize token URL": c.AuthorizeTokenURL,
		"access token URL":    c.AccessTokenURL,
	}
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
