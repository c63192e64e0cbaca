package openlibrary

import (
	"regexp"
	"strings"
)

const redacted = "[redacted]"

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\b\d{12,16}\b`),
}

var repeatedSpace = regexp.MustCompile(`\s{2,}`)

// Scrub replaces phone numbers, email addresses, and long digit runs with
// [redacted] and collapses whitespace. It is applied to free text before it
// leaves the building.
func Scrub(text string) string {
	for _, pattern := range piiPatterns {
		text = pattern.ReplaceAllString(text, redacted)
	}
	return strings.TrimSpace(repeatedSpace.ReplaceAllString(text, " "))
}
