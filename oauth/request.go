// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/toolhive-oauth1/signature"
	"github.com/stacklok/toolhive-oauth1/transport"
	httpval "github.com/stacklok/toolhive-oauth1/validation/http"
)

// RequestBuilder produces signed token requests for one AuthContext.
type RequestBuilder struct {
	authCtx AuthContext
	signer  signature.Signer
	now     func() time.Time
	nonce   func() string
}

// NewRequestBuilder returns a builder. A nil signer selects
// signature.NewSigner with the context's private key.
func NewRequestBuilder(authCtx AuthContext, signer signature.Signer) *RequestBuilder {
	if signer == nil {
		signer = signature.NewSigner(authCtx.PrivateKey)
	}
	return &RequestBuilder{
		authCtx: authCtx,
		signer:  signer,
		now:     time.Now,
		nonce:   newNonce,
	}
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Build returns a signed POST to endpoint. token may be nil, in which case
// only the consumer credentials sign the request. Parameters whose name
// starts with oauth_ join the Authorization header; the rest form the body.
func (b *RequestBuilder) Build(endpoint *url.URL, token *Token, params map[string]string) (*transport.Request, error) {
	if endpoint == nil {
		return nil, ErrMissingEndpoint
	}

	protocol := url.Values{}
	protocol.Set(ParamConsumerKey, b.authCtx.ConsumerKey)
	protocol.Set(ParamNonce, b.nonce())
	protocol.Set(ParamSignatureMethod, string(b.authCtx.SignatureMethod))
	protocol.Set(ParamTimestamp, strconv.FormatInt(b.now().Unix(), 10))
	protocol.Set(ParamVersion, Version)

	tokenSecret := ""
	if token != nil && token.Key != "" {
		protocol.Set(ParamToken, token.Key)
		tokenSecret = token.Secret
	}

	body := url.Values{}
	for k, v := range params {
		if strings.HasPrefix(k, ProtocolParamPrefix) {
			protocol.Set(k, v)
		} else {
			body.Set(k, v)
		}
	}

	all := url.Values{}
	for _, set := range []url.Values{protocol, body} {
		for k, vs := range set {
			all[k] = append(all[k], vs...)
		}
	}

	sig, err := b.signer.Sign(signature.Input{
		Method:          http.MethodPost,
		URL:             endpoint,
		Parameters:      all,
		ConsumerSecret:  b.authCtx.ConsumerSecret,
		TokenSecret:     tokenSecret,
		SignatureMethod: b.authCtx.SignatureMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	protocol.Set(ParamSignature, sig)

	authz := AuthorizationHeader(protocol)
	if err := httpval.ValidateHeaderValue(authz); err != nil {
		return nil, fmt.Errorf("invalid Authorization header: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", authz)
	header.Set("Accept", ContentTypeForm)

	req := &transport.Request{
		Method: http.MethodPost,
		URL:    cloneURL(endpoint),
		Header: header,
	}
	if len(body) > 0 {
		header.Set("Content-Type", ContentTypeForm)
		req.Body = []byte(body.Encode())
	}
	return req, nil
}

// AuthorizationHeader formats protocol parameters as an OAuth Authorization
// header value (RFC 5849 Section 3.5.1), sorted by name.
func AuthorizationHeader(protocol url.Values) string {
	keys := slices.Sorted(maps.Keys(protocol))

	var sb strings.Builder
	sb.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(signature.Escape(k))
		sb.WriteString(`="`)
		sb.WriteString(signature.Escape(protocol.Get(k)))
		sb.WriteByte('"')
	}
	return sb.String()
}

// ParseAuthorizationHeader is the inverse of AuthorizationHeader. The realm
// parameter is dropped.
func ParseAuthorizationHeader(h string) (url.Values, error) {
	rest, ok := strings.CutPrefix(h, "OAuth ")
	if !ok {
		return nil, fmt.Errorf("not an OAuth Authorization header")
	}
	out := url.Values{}
	for part := range strings.SplitSeq(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("malformed parameter %q", part)
		}
		v = strings.Trim(v, `"`)
		key, err := url.PathUnescape(k)
		if err != nil {
			return nil, err
		}
		val, err := url.PathUnescape(v)
		if err != nil {
			return nil, err
		}
		if key == "realm" {
			continue
		}
		out.Set(key, val)
	}
	return out, nil
}
