// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by RFC 5849 HMAC-SHA1 and RSA-SHA1
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Method is an OAuth 1.0 signature method.
type Method string

// Signature methods defined by RFC 5849 Section 3.4.
const (
	PlainText Method = "PLAINTEXT"
	HMACSHA1  Method = "HMAC-SHA1"
	RSASHA1   Method = "RSA-SHA1"
)

var (
	// ErrUnsupportedMethod is returned for a signature method other than the three above.
	ErrUnsupportedMethod = errors.New("unsupported signature method")

	// ErrMissingPrivateKey is returned when RSA-SHA1 is requested without a key.
	ErrMissingPrivateKey = errors.New("RSA-SHA1 requires a private key")
)

// ParseMethod converts a configuration string to a Method. Matching is
// case-insensitive; the empty string selects HMAC-SHA1.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(HMACSHA1):
		return HMACSHA1, nil
	case string(PlainText):
		return PlainText, nil
	case string(RSASHA1):
		return RSASHA1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
}

// Input describes the request being signed.
type Input struct {
	// Method is the HTTP request method.
	Method string
	// URL is the request URL; its query parameters are included in the base string.
	URL *url.URL
	// Parameters are the oauth_* protocol parameters and any form body
	// parameters. oauth_signature and realm are ignored if present.
	Parameters url.Values
	// ConsumerSecret and TokenSecret form the HMAC and PLAINTEXT key.
	ConsumerSecret string
	TokenSecret    string
	// SignatureMethod selects the algorithm.
	SignatureMethod Method
}

// Signer produces an oauth_signature value. Implementations have no side effects.
type Signer interface {
	Sign(in Input) (string, error)
}

// DefaultSigner implements the three RFC 5849 signature methods.
type DefaultSigner struct {
	key *rsa.PrivateKey
}

// NewSigner returns a DefaultSigner. key may be nil when RSA-SHA1 is not used.
func NewSigner(key *rsa.PrivateKey) *DefaultSigner {
	return &DefaultSigner{key: key}
}

// Sign implements Signer.
func (s *DefaultSigner) Sign(in Input) (string, error) {
	switch in.SignatureMethod {
	case PlainText:
		return signingKey(in.ConsumerSecret, in.TokenSecret), nil
	case HMACSHA1:
		base, err := BaseString(in.Method, in.URL, in.Parameters)
		if err != nil {
			return "", err
		}
		mac := hmac.New(sha1.New, []byte(signingKey(in.ConsumerSecret, in.TokenSecret)))
		mac.Write([]byte(base))
		return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
	case RSASHA1:
		if s.key == nil {
			return "", ErrMissingPrivateKey
		}
		base, err := BaseString(in.Method, in.URL, in.Parameters)
		if err != nil {
			return "", err
		}
		digest := sha1.Sum([]byte(base)) //nolint:gosec // mandated by RFC 5849
		sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
		if err != nil {
			return "", fmt.Errorf("rsa sign: %w", err)
		}
		return base64.StdEncoding.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, in.SignatureMethod)
	}
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(in Input) (string, error)

// Sign calls f(in).
func (f SignerFunc) Sign(in Input) (string, error) {
	return f(in)
}

func signingKey(consumerSecret, tokenSecret string) string {
	return Escape(consumerSecret) + "&" + Escape(tokenSecret)
}

// BaseString builds the signature base string of RFC 5849 Section 3.4.1.
func BaseString(method string, u *url.URL, params url.Values) (string, error) {
	if u == nil {
		return "", errors.New("signature base string requires a URL")
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("signature base string requires an absolute URL, got %q", u)
	}

	return strings.ToUpper(method) + "&" +
		Escape(baseURI(u)) + "&" +
		Escape(normalizeParameters(u.Query(), params)), nil
}

// baseURI implements Section 3.4.1.2: lowercase scheme and host, default
// port dropped, no query or fragment.
func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" {
		if (scheme == "http" && port != "80") || (scheme == "https" && port != "443") {
			host += ":" + port
		}
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// normalizeParameters implements Section 3.4.1.3.2.
func normalizeParameters(sets ...url.Values) string {
	type pair struct{ k, v string }
	var pairs []pair
	for _, set := range sets {
		for k, vs := range set {
			if k == "oauth_signature" || k == "realm" {
				continue
			}
			for _, v := range vs {
				pairs = append(pairs, pair{Escape(k), Escape(v)})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}

// Escape percent-encodes s per RFC 5849 Section 3.6: everything except the
// unreserved set ALPHA / DIGIT / "-" / "." / "_" / "~" is encoded with
// uppercase hex digits.
func Escape(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
