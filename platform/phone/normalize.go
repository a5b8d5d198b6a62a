// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "FR"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns
// the input with whitespace and dashes stripped.
func NormalizeE164(input string) string {
	stripped := stripSeparators(input)
	if stripped == "" {
		return stripped
	}

	number, err := phonenumbers.Parse(stripped, defaultRegion)
	if err != nil {
		return stripped
	}

	if !phonenumbers.IsValidNumber(number) {
		return stripped
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

func stripSeparators(input string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
