// Package phonenumber normalizes dialable numbers into an E.164-like form.
// The rules are pragmatic and tuned for Ghanaian numbers by default: strip
// separators, expand a leading zero to the country code, and prefix short
// national numbers with the default country.
package phonenumber

import "strings"

// DefaultCountryCode is applied when a number carries no country prefix.
const DefaultCountryCode = "+233"

// Normalize cleans raw input into a dialable number. It returns the empty
// string when the input cannot plausibly be a phone number.
func Normalize(raw, defaultCountry string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	hasPlus := strings.HasPrefix(s, "+")
	if hasPlus {
		s = s[1:]
	}
	cleaned := digitsOnly(s)
	if cleaned == "" {
		return ""
	}

	if hasPlus {
		return "+" + cleaned
	}

	// A leading zero marks a national number; swap it for the country code.
	if cleaned[0] == '0' {
		return defaultCountry + strings.TrimLeft(cleaned, "0")
	}

	// Bare national-length numbers get the default country prefix.
	if n := len(cleaned); n >= 7 && n <= 10 {
		return defaultCountry + cleaned
	}

	// Longer runs of digits are taken as international numbers missing
	// their plus.
	if len(cleaned) > 10 {
		return "+" + cleaned
	}

	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
