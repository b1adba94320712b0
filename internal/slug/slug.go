// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug normalizes category codes into URL-safe slugs. Codes are
// compared case-insensitively and used as stable lookup keys, so they are
// normalized once at creation and never rewritten afterwards.
package slug

import (
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// valid matches a fully normalized code.
	valid = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Generate creates a normalized code from the given string.
// Example: "System Design!" → "system-design"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Valid reports whether s is already a normalized code: lowercase
// alphanumeric words separated by single hyphens, nothing else.
func Valid(s string) bool {
	return valid.MatchString(s)
}
