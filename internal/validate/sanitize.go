package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds every sanitized free-text value, in characters.
const MaxTextLength = 1000

var (
	javascriptURI = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)
	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// Sanitize strips markup-looking content from user supplied text: angle
// brackets, javascript: URIs and inline event handlers (on<word>=). The result
// is trimmed and truncated to MaxTextLength characters.
//
// Sanitize is idempotent: stripping repeats until nothing changes, so removals
// that splice a new pattern together ("javajavascript:script:") are caught.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	for {
		next := angleBrackets.Replace(s)
		next = javascriptURI.ReplaceAllString(next, "")
		next = eventHandler.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(s)
	s = Truncate(s, MaxTextLength)
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// NormalizeEmail returns the sanitized, trimmed, lower-cased address.
func NormalizeEmail(email string) string {
	return strings.ToLower(Sanitize(email))
}
