// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package relation provides validation functions for link relation types.
package relation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var registeredNameRegex = regexp.MustCompile(`^[a-z][a-z0-9.\-]*$`)

// ValidateName validates a registered relation type or an extension
// relation type given as an absolute URI.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("relation type cannot be empty or consist only of whitespace")
	}

	// Check for null bytes explicitly
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("relation type cannot contain null bytes")
	}

	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("relation type cannot contain whitespace: %q", name)
	}

	if registeredNameRegex.MatchString(name) {
		return nil
	}

	if !strings.Contains(name, ":") {
		if name != strings.ToLower(name) {
			return fmt.Errorf("registered relation type must be lowercase: %q", name)
		}
		return fmt.Errorf("registered relation type can only contain lowercase letters, digits, dots and dashes: %q", name)
	}

	u, err := url.Parse(name)
	if err != nil {
		return fmt.Errorf("invalid extension relation type %q: %w", name, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("extension relation type must be an absolute URI: %q", name)
	}
	return nil
}
