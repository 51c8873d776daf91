package common

import "strings"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// HasAnyFold is HasAny ignoring case.
func HasAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// LastField returns the trimmed text after the last sep, or s itself.
// "New York, NY, United States" -> "United States".
func LastField(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return strings.TrimSpace(s[i+len(sep):])
	}
	return strings.TrimSpace(s)
}
