// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkElements returns the <link> elements of an HTML document. A <base>
// element, when present, replaces base for resolving hrefs.
func (DefaultParser) LinkElements(body []byte, base *url.URL) ([]Link, error) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var links []Link
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return links, nil
			}
			return links, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			switch atom.Lookup(name) {
			case atom.Base:
				if href := tagAttrs(z)["href"]; href != "" {
					if u, err := url.Parse(resolve(base, href)); err == nil {
						base = u
					}
				}
			case atom.Link:
				attrs := tagAttrs(z)
				href := resolve(base, attrs["href"])
				if href == "" || attrs["rel"] == "" {
					continue
				}
				links = append(links, Link{
					Rel:  splitRel(attrs["rel"]),
					Type: attrs["type"],
					Href: href,
				})
			}
		}
	}
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string, 4)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}
