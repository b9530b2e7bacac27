// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tomnomnom/linkheader"
)

// LinkHeaders returns the links of every Link header in header.
func (DefaultParser) LinkHeaders(header http.Header, base *url.URL) ([]Link, error) {
	values := header.Values("Link")
	if len(values) == 0 {
		return nil, nil
	}
	var links []Link
	for _, l := range linkheader.ParseMultiple(values) {
		href := resolve(base, l.URL)
		if href == "" || l.Rel == "" {
			continue
		}
		link := Link{Rel: splitRel(l.Rel), Href: href}
		for k, v := range l.Params {
			if strings.EqualFold(k, "type") {
				link.Type = v
			}
		}
		links = append(links, link)
	}
	return links, nil
}
