// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package linkfilter narrows discovery link candidates with a CEL expression.

A Filter is compiled once and evaluated against every candidate link that
already matched the requested relation and media type. The expression sees
these variables:

	rel        list(string)  relation types of the link
	link_type  string        the link's type attribute, possibly empty
	href       string        resolved target URL
	mime_type  string        the media type being located
	source     string        the subject URL

# Basic Usage

	f, err := linkfilter.New(`href.startsWith("https://") && !("alternate" in rel)`)
	if err != nil {
	    // handle compilation error
	}
	ok, err := f.Accept(linkfilter.Candidate{Href: "https://example.org/xrd/alice"})

# Error Handling

Compilation errors are returned as *ParseError or *CheckError carrying
line and column details; both wrap ErrExpressionCheck.

# Limits

Expressions longer than DefaultMaxExpressionLength are rejected and
evaluation stops at DefaultCostLimit. Both are adjustable with options.
*/
package linkfilter
