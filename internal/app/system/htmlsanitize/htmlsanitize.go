// Package htmlsanitize provides sanitization for user-provided text fields.
// It uses bluemonday to strip HTML markup so that values like addresses and
// phone numbers are stored and rendered as plain text.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strictPolicy strips all HTML elements and attributes.
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

// getPolicy returns the shared sanitization policy, creating it on first use.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Text strips all HTML markup from s and returns the remaining plain text.
// Entities introduced by the sanitizer are unescaped so the stored value is
// the literal text the user typed, minus any markup.
func Text(s string) string {
	if s == "" {
		return ""
	}
	cleaned := getPolicy().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// ContainsMarkup reports whether s appears to contain HTML tags.
func ContainsMarkup(s string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
