package util

import "strings"

// DefaultString returns fallback if v is empty or whitespace-only, otherwise
// v unchanged.
func DefaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// EmptyDash renders optional fields in tables: "-" for blank values.
func EmptyDash(s string) string {
	return DefaultString(s, "-")
}
