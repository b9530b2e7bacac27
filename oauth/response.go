// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stacklok/toolhive-oauth1/httperr"
	"github.com/stacklok/toolhive-oauth1/transport"
)

// parseParams decodes a form-encoded token response into a flat mapping.
// Repeated keys keep their first value.
func parseParams(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseMalformed, err)
	}
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}

// tokenFromParams extracts a token. Everything besides oauth_token and
// oauth_token_secret becomes Extra.
func tokenFromParams(params map[string]string) (*Token, error) {
	key, ok := params[ParamToken]
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrResponseMalformed, ParamToken)
	}
	secret, ok := params[ParamTokenSecret]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrResponseMalformed, ParamTokenSecret)
	}
	extra := make(map[string]string, len(params))
	for k, v := range params {
		if k != ParamToken && k != ParamTokenSecret {
			extra[k] = v
		}
	}
	return &Token{Key: key, Secret: secret, Extra: extra}, nil
}

// readTokenResponse turns a transport outcome into parameters, classifying
// failures by phase.
func readTokenResponse(phase Phase, resp *transport.Response, err error) (map[string]string, error) {
	if err != nil {
		return nil, &HandshakeError{Phase: phase, Err: err}
	}
	if err := httperr.FromStatus(resp.StatusCode); err != nil {
		return nil, &HandshakeError{Phase: phase, Err: err}
	}
	params, err := parseParams(resp.Body)
	if err != nil {
		return nil, &HandshakeError{Phase: PhaseResponseMalformed, Err: err}
	}
	return params, nil
}
