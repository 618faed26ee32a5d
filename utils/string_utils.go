package utils

import "strings"

// NormalizeKey is the identity used to join SKUs across imports.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// EqualFoldTrim compares two labels ignoring case and surrounding space.
func EqualFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
