// Package partcode provides part number normalization for catalog and
// supersession lookups. Source systems disagree on casing and separator
// characters, so every code is canonicalized before it is stored or compared.
package partcode

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a part code: uppercase, trimmed, with whitespace
// and separator characters removed. "ab-123 x" and "AB123X" normalize to the
// same key.
func Normalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.TrimSpace(code) {
		if unicode.IsSpace(r) || r == '-' || r == '.' || r == '/' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// IsValid reports whether a normalized part code is usable as a lookup key.
// Codes must be non-empty alphanumerics after normalization.
func IsValid(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
