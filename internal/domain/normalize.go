package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for client/company/title normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail lowercases and trims an email address. It does not validate format.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps only the digits of s. An 11-digit North American number with
// a leading country digit "1" is reduced to its trailing 10 digits; every other
// length passes through unchanged.
func NormalizePhone(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

// FoldHeader produces the lookup key for a spreadsheet column header:
// NFKC-normalized, lower-cased, with whitespace runs collapsed to one space.
// "  Client NAME " and "client name" fold to the same key.
func FoldHeader(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
