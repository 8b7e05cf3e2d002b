// Package normalize canonicalizes member contact fields into comparable keys.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases s. It reports false when nothing remains.
// No RFC validation is attempted.
func Email(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	return v, v != ""
}

// Phone maps s onto an E.164-like key. Ten digits are assumed to be a US
// number, eleven digits with a leading 1 gain a "+", and input that already
// starts with "+" is kept as given. This is a heuristic, not a parser.
func Phone(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)

	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	case strings.HasPrefix(trimmed, "+"):
		return trimmed, true
	case digits != "":
		return "+" + digits, true
	default:
		return "", false
	}
}

// EmailOrEmpty is Email without the presence flag.
func EmailOrEmpty(s string) string {
	v, _ := Email(s)
	return v
}

// PhoneOrEmpty is Phone without the presence flag.
func PhoneOrEmpty(s string) string {
	v, _ := Phone(s)
	return v
}

// Text collapses internal whitespace runs and trims the ends.
func Text(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
