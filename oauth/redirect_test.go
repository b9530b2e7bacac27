// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCallbackURL(t *testing.T) {
	t.Parallel()

	// Empty error string means the callback is accepted under that policy.
	tests := []struct {
		name       string
		uri        string
		strictErr  string
		privateErr string
	}{
		{name: "out of band", uri: "oob"},
		{name: "https", uri: "https://consumer.example.com/callback"},
		{name: "https with query", uri: "https://consumer.example.com/callback?session=abc"},
		{name: "http localhost with port", uri: "http://localhost:8080/callback"},
		{name: "http 127.0.0.1", uri: "http://127.0.0.1/callback"},
		{
			name:      "native app scheme",
			uri:       "myapp://oauth/callback",
			strictErr: "http (for loopback) or https",
		},
		{
			name:       "uppercase oob is a relative URI",
			uri:        "OOB",
			strictErr:  "absolute URI without a fragment",
			privateErr: "absolute URI without a fragment",
		},
		{
			name:       "fragment",
			uri:        "https://consumer.example.com/callback#done",
			strictErr:  "absolute URI without a fragment",
			privateErr: "absolute URI without a fragment",
		},
		{
			name:       "http non-loopback",
			uri:        "http://consumer.example.com/callback",
			strictErr:  "http (for loopback) or https",
			privateErr: "secure scheme",
		},
		{
			name:       "too long",
			uri:        "https://consumer.example.com/" + strings.Repeat("a", MaxCallbackURLLength),
			strictErr:  "too long",
			privateErr: "too long",
		},
		{
			name:       "empty",
			uri:        "",
			strictErr:  "absolute URI without a fragment",
			privateErr: "absolute URI without a fragment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/strict", func(t *testing.T) {
			t.Parallel()
			assertCallbackValidation(t, tt.uri, CallbackPolicyStrict, tt.strictErr)
		})
		t.Run(tt.name+"/private", func(t *testing.T) {
			t.Parallel()
			assertCallbackValidation(t, tt.uri, CallbackPolicyAllowPrivateSchemes, tt.privateErr)
		})
	}
}

func TestValidateCallbackURL_UnknownPolicy(t *testing.T) {
	t.Parallel()
	err := ValidateCallbackURL("https://consumer.example.com/cb", CallbackPolicy(42))
	assert.ErrorContains(t, err, "unknown callback policy")
}

func assertCallbackValidation(t *testing.T, uri string, policy CallbackPolicy, wantErrContains string) {
	t.Helper()
	err := ValidateCallbackURL(uri, policy)
	if wantErrContains == "" {
		assert.NoError(t, err)
		return
	}
	assert.ErrorContains(t, err, wantErrContains)
}
