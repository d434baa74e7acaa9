// Package redact masks personal data in conversation text before it is
// written to logs.
package redact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var rules = []struct {
	pattern *regexp.Regexp
	mask    string
	// keep reports matches that must stay as written.
	keep func(string) bool
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]", nil},
	// Cards before phones so a card number is never masked as a phone.
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]", nil},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]", isoDate.MatchString},
	// National ID numbers written as "CC 1.234.567" or "cédula 1234567".
	{regexp.MustCompile(`(?i)\b(?:cc|c\.c\.|c[ée]dula)\s*:?\s*[0-9][0-9.]{5,}`), "[REDACTED_ID]", nil},
}

// PII masks emails, card numbers, phone numbers and national IDs.
func PII(input string) (string, bool) {
	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllStringFunc(out, func(m string) string {
			if r.keep != nil && r.keep(strings.TrimSpace(m)) {
				return m
			}
			return r.mask
		})
	}
	return out, out != input
}

// Preview returns a redacted single-line excerpt of at most max runes.
func Preview(input string, max int) string {
	out, _ := PII(input)
	out = strings.Join(strings.Fields(out), " ")
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[:max]) + "…"
}
