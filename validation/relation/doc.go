// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package relation provides validation functions for link relation types.

A relation type names the meaning of a link, for example the "lrdd"
relation that points from a resource to its descriptor. RFC 8288 allows two
forms, and ValidateName accepts both:

	if err := relation.ValidateName("lrdd"); err != nil {
		// Handle invalid relation
	}

Registered relation types must:
  - Start with a lowercase letter
  - Contain only lowercase letters, digits, dots and dashes

Extension relation types must be absolute URIs, such as
"http://webfinger.net/rel/profile-page".

# Examples

Valid relations:

	"lrdd"
	"describedby"
	"hub"
	"http://specs.openid.net/auth/2.0/provider"

Invalid relations:

	""                  // empty
	"LRDD"              // uppercase
	"two words"         // whitespace
	"/relative/path"    // not an absolute URI
*/
package relation
