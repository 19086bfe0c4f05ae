package models

import (
	"strings"

	"github.com/gosimple/slug"
)

// MakeSlug turns a display name into a lowercase, hyphenated identifier of
// at most maxLen characters. Non-latin scripts are transliterated.
func MakeSlug(name string, maxLen int) string {
	s := slug.Make(strings.TrimSpace(name))
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// IsValidSlug reports whether s can be used as-is as a slug of at most maxLen characters.
func IsValidSlug(s string, maxLen int) bool {
	return s != "" && len(s) <= maxLen && slug.IsSlug(s)
}
