// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParser_LinkElements(t *testing.T) {
	t.Parallel()

	body := []byte(`<!DOCTYPE html>
<html>
<head>
  <base href="https://cdn.example.org/people/">
  <LINK REL="LRDD Describedby" TYPE="application/xrd+xml" HREF="alice.xrd">
  <link rel="icon" href="/favicon.ico"/>
  <link href="/no-rel">
  <link rel="lrdd">
</head>
<body><a rel="lrdd" href="/not-a-link-element">x</a></body>
</html>`)

	links, err := DefaultParser{}.LinkElements(body, mustURL(t, "https://example.org/alice"))
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, Link{
		Rel:  []string{"LRDD", "Describedby"},
		Type: "application/xrd+xml",
		Href: "https://cdn.example.org/people/alice.xrd",
	}, links[0])
	assert.True(t, links[0].HasRel("lrdd"))
	assert.True(t, links[0].HasRel("describedby"))
	assert.Equal(t, "https://cdn.example.org/favicon.ico", links[1].Href)
}

func TestDefaultParser_LinkHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Add("Link", `<https://example.org/xrd/alice>; rel="lrdd"; Type="application/xrd+xml", </relative>; rel="alternate"`)
	h.Add("Link", `<https://example.org/no-rel>`)

	links, err := DefaultParser{}.LinkHeaders(h, mustURL(t, "https://example.org/alice"))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, Link{Rel: []string{"lrdd"}, Type: "application/xrd+xml", Href: "https://example.org/xrd/alice"}, links[0])
	assert.Equal(t, "https://example.org/relative", links[1].Href)

	links, err = DefaultParser{}.LinkHeaders(http.Header{}, nil)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDefaultParser_HostMeta(t *testing.T) {
	t.Parallel()

	base := mustURL(t, "https://example.org/.well-known/host-meta")

	tests := []struct {
		name        string
		contentType string
		body        string
		want        []Link
		wantErr     string
	}{
		{
			name:        "xrd with namespace",
			contentType: MediaTypeXRD,
			body: `<?xml version="1.0"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0" xmlns:hm="http://host-meta.net/xrd/1.0">
  <hm:Host>example.org</hm:Host>
  <Link rel="lrdd" type="application/xrd+xml" template="https://example.org/lrdd?uri={uri}"/>
  <Link rel="author" href="/about"/>
</XRD>`,
			want: []Link{
				{Rel: []string{"lrdd"}, Type: "application/xrd+xml", Template: "https://example.org/lrdd?uri={uri}"},
				{Rel: []string{"author"}, Href: "https://example.org/about"},
			},
		},
		{
			name:        "jrd sniffed without content type",
			contentType: "",
			body:        `{"subject": "https://example.org", "links": [{"rel": "lrdd", "href": "https://example.org/jrd/alice"}]}`,
			want:        []Link{{Rel: []string{"lrdd"}, Href: "https://example.org/jrd/alice"}},
		},
		{
			name:        "jrd failing schema",
			contentType: "application/jrd+json",
			body:        `{"links": "nope"}`,
			wantErr:     "JRD schema validation failed",
		},
		{
			name:        "broken xml",
			contentType: MediaTypeXRD,
			body:        `<XRD><Link rel="lrdd"`,
			wantErr:     "invalid XRD",
		},
		{
			name:    "empty",
			body:    "  \n",
			wantErr: "empty host-meta document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			links, err := DefaultParser{}.HostMeta(tt.contentType, []byte(tt.body), base)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, links)
		})
	}
}

func TestLink_MatchesType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		linkType string
		mimeType string
		want     bool
	}{
		{"", "application/xrd+xml", true},
		{"application/xrd+xml", "application/xrd+xml", true},
		{"Application/XRD+XML; charset=UTF-8", "application/xrd+xml", true},
		{"application/json", "application/xrd+xml", false},
		{"text/html", "text/html;level=1", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Link{Type: tt.linkType}.MatchesType(tt.mimeType), "%q vs %q", tt.linkType, tt.mimeType)
	}
}

func TestLink_Target(t *testing.T) {
	t.Parallel()

	subject := mustURL(t, "https://example.org/alice?x=1")

	got, err := Link{Template: "https://example.org/lrdd?uri={uri}"}.Target(subject)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/lrdd?uri=https%3A%2F%2Fexample.org%2Falice%3Fx%3D1", got.String())

	got, err = Link{Href: "https://example.org/xrd/alice", Template: "ignored"}.Target(subject)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/xrd/alice", got.String())

	_, err = Link{Template: "/lrdd?uri={uri}"}.Target(subject)
	assert.Error(t, err)
}

func TestStateAndKindStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SearchingHostMeta", SearchingHostMeta.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.True(t, LookupFailed.Terminal())
	assert.True(t, RequestingURI.InFlight())
	assert.False(t, Idle.InFlight())
	assert.Equal(t, "not found", KindNotFound.String())
	assert.Equal(t, "discovery: not found (https://example.org/alice): boom",
		(&Error{Kind: KindNotFound, URL: "https://example.org/alice", Err: assertErr("boom")}).Error())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
