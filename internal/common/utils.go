package common

import (
	"strings"
	"unicode/utf8"
)

// placeholderMarkers are fragments found in template credentials that were never filled in.
var placeholderMarkers = []string{"YOUR_", "CHANGE_ME", "<", ">"}

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CredentialMissing reports whether a configured secret is empty or still a placeholder.
func CredentialMissing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || HasAny(v, placeholderMarkers...)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
