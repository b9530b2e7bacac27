// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"errors"
	"mime"
	"net/url"
	"strings"
)

// DefaultRelation is the link relation searched for every media type
// without a WithRelation override.
const DefaultRelation = "lrdd"

// Link is a candidate link found by any strategy.
type Link struct {
	Rel  []string
	Type string
	// Href is the target, already resolved against the document URL.
	Href string
	// Template is an RFC 6415 URI template containing {uri}.
	Template string
}

// HasRel reports whether rel is among the link's relation types.
// Comparison is case-insensitive.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rel {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// MatchesType reports whether the link may serve mimeType. A link without a
// type attribute matches any type. Media type parameters are ignored.
func (l Link) MatchesType(mimeType string) bool {
	if l.Type == "" {
		return true
	}
	return strings.EqualFold(baseMediaType(l.Type), baseMediaType(mimeType))
}

func baseMediaType(s string) string {
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Target returns the URL the link points at for subject. Templates have
// {uri} replaced with the percent-encoded subject.
func (l Link) Target(subject *url.URL) (*url.URL, error) {
	raw := l.Href
	if raw == "" && l.Template != "" {
		raw = strings.ReplaceAll(l.Template, "{uri}", url.QueryEscape(subject.String()))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, &url.Error{Op: "resolve", URL: raw, Err: errNotAbsolute}
	}
	return u, nil
}

var errNotAbsolute = errors.New("link target is not absolute")

func splitRel(rel string) []string {
	return strings.Fields(rel)
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
