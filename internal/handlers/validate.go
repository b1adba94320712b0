package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for taxonomy fields and query parameters.
const (
	maxNameLen        = 200
	maxCodeLen        = 100
	maxDescriptionLen = 2_000
	maxBulkSpecs      = 1_000
	maxSampleSize     = 500
)

// validateName checks a category or label name and returns the first
// error found.
func validateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 200 characters)."
	}
	return ""
}

// validateCode checks a raw category code before normalization.
func validateCode(code string) string {
	if utf8.RuneCountInString(code) > maxCodeLen {
		return "Code is too long (max 100 characters)."
	}
	return ""
}

// validateDescription checks the optional description field.
func validateDescription(description string) string {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)."
	}
	return ""
}
