// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // verifying RFC 5849 signatures
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// photosInput is the reference request from the OAuth Core 1.0 appendix.
func photosInput(t *testing.T) Input {
	t.Helper()
	return Input{
		Method: "GET",
		URL:    mustParse(t, "http://photos.example.net/photos?file=vacation.jpg&size=original"),
		Parameters: url.Values{
			"oauth_consumer_key":     {"dpf43f3p2l4k3l03"},
			"oauth_token":            {"nnch734d00sl2jdk"},
			"oauth_signature_method": {"HMAC-SHA1"},
			"oauth_timestamp":        {"1191242096"},
			"oauth_nonce":            {"kllo9940pd9333jh"},
			"oauth_version":          {"1.0"},
		},
		ConsumerSecret:  "kd94hf93k423kf44",
		TokenSecret:     "pfkkdhi9sl3r4s00",
		SignatureMethod: HMACSHA1,
	}
}

func TestBaseString_ReferenceRequest(t *testing.T) {
	t.Parallel()

	in := photosInput(t)
	base, err := BaseString(in.Method, in.URL, in.Parameters)
	require.NoError(t, err)

	assert.Equal(t,
		"GET&http%3A%2F%2Fphotos.example.net%2Fphotos&file%3Dvacation.jpg%26"+
			"oauth_consumer_key%3Ddpf43f3p2l4k3l03%26oauth_nonce%3Dkllo9940pd9333jh%26"+
			"oauth_signature_method%3DHMAC-SHA1%26oauth_timestamp%3D1191242096%26"+
			"oauth_token%3Dnnch734d00sl2jdk%26oauth_version%3D1.0%26size%3Doriginal",
		base)
}

func TestSign_HMACSHA1ReferenceVector(t *testing.T) {
	t.Parallel()

	sig, err := NewSigner(nil).Sign(photosInput(t))
	require.NoError(t, err)
	assert.Equal(t, "tR3+Ty81lMeYAr/Fid0kMTYa/WM=", sig)
}

func TestNormalizeParameters_RFC5849Example(t *testing.T) {
	t.Parallel()

	query := url.Values{
		"b5": {"=%3D"},
		"a3": {"a"},
		"c@": {""},
		"a2": {"r b"},
	}
	params := url.Values{
		"oauth_consumer_key":     {"9djdj82h48djs9d2"},
		"oauth_token":            {"kkk9d7dh3k39sjv7"},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {"137131201"},
		"oauth_nonce":            {"7d8f3e4a"},
		"oauth_signature":        {"ignored"},
		"realm":                  {"Example"},
		"c2":                     {""},
		"a3":                     {"2 q"},
	}

	assert.Equal(t,
		"a2=r%20b&a3=2%20q&a3=a&b5=%3D%253D&c%40=&c2=&oauth_consumer_key=9djdj82h48djs9d2"+
			"&oauth_nonce=7d8f3e4a&oauth_signature_method=HMAC-SHA1&oauth_timestamp=137131201"+
			"&oauth_token=kkk9d7dh3k39sjv7",
		normalizeParameters(query, params))
}

func TestBaseURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM:80/r%20v/X?id=123", "http://example.com/r%20v/X"},
		{"https://www.example.net:8080/?q=1", "https://www.example.net:8080/"},
		{"https://example.org:443/oauth/request_token", "https://example.org/oauth/request_token"},
		{"http://example.org", "http://example.org/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, baseURI(mustParse(t, tt.in)))
		})
	}
}

func TestSign_PlainText(t *testing.T) {
	t.Parallel()

	in := photosInput(t)
	in.SignatureMethod = PlainText
	in.ConsumerSecret = "djr9rjt0jd78jf88"
	in.TokenSecret = "jjd99$tj88uiths3"

	sig, err := NewSigner(nil).Sign(in)
	require.NoError(t, err)
	assert.Equal(t, "djr9rjt0jd78jf88&jjd99%24tj88uiths3", sig)

	in.TokenSecret = ""
	sig, err = NewSigner(nil).Sign(in)
	require.NoError(t, err)
	assert.Equal(t, "djr9rjt0jd78jf88&", sig)
}

func TestSign_RSASHA1(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	in := photosInput(t)
	in.SignatureMethod = RSASHA1

	sig, err := NewSigner(key).Sign(in)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)

	base, err := BaseString(in.Method, in.URL, in.Parameters)
	require.NoError(t, err)
	digest := sha1.Sum([]byte(base)) //nolint:gosec // verifying RSA-SHA1
	require.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], raw))

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		_, err := NewSigner(nil).Sign(in)
		require.ErrorIs(t, err, ErrMissingPrivateKey)
	})
}

func TestSign_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unsupported method", func(t *testing.T) {
		t.Parallel()
		in := photosInput(t)
		in.SignatureMethod = "HMAC-SHA256"
		_, err := NewSigner(nil).Sign(in)
		require.ErrorIs(t, err, ErrUnsupportedMethod)
	})

	t.Run("relative URL", func(t *testing.T) {
		t.Parallel()
		in := photosInput(t)
		in.URL = mustParse(t, "/photos")
		_, err := NewSigner(nil).Sign(in)
		require.Error(t, err)
	})

	t.Run("nil URL", func(t *testing.T) {
		t.Parallel()
		in := photosInput(t)
		in.URL = nil
		_, err := NewSigner(nil).Sign(in)
		require.Error(t, err)
	})
}

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"abcABC123-._~", "abcABC123-._~"},
		{"r b", "r%20b"},
		{"=%3D", "%3D%253D"},
		{"a+b", "a%2Bb"},
		{"https://example.org/cb?x=1", "https%3A%2F%2Fexample.org%2Fcb%3Fx%3D1"},
		{"ü", "%C3%BC"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", HMACSHA1, false},
		{"hmac-sha1", HMACSHA1, false},
		{"PLAINTEXT", PlainText, false},
		{"rsa-sha1", RSASHA1, false},
		{"HMAC-SHA256", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMethod(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignerFunc(t *testing.T) {
	t.Parallel()

	var s Signer = SignerFunc(func(in Input) (string, error) {
		return string(in.SignatureMethod), nil
	})
	got, err := s.Sign(Input{SignatureMethod: PlainText})
	require.NoError(t, err)
	assert.Equal(t, "PLAINTEXT", got)
}
