package identifiers

import (
	"strconv"
	"strings"
)

func stripISBN(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// ValidateISBN10 reports whether s is a well-formed ISBN-10. Hyphens and
// spaces are ignored; X is accepted as the check character only.
func ValidateISBN10(s string) bool {
	s = stripISBN(s)
	if len(s) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 10; i++ {
		var value int
		switch {
		case s[i] == 'X':
			if i != 9 {
				return false
			}
			value = 10
		case isDigit(s[i]):
			value = int(s[i] - '0')
		default:
			return false
		}
		total += value * (10 - i)
	}
	return total%11 == 0
}

// ValidateISBN13 reports whether s is a well-formed ISBN-13.
func ValidateISBN13(s string) bool {
	s = stripISBN(s)
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	return isbn13Sum(s)%10 == 0
}

func isbn13Sum(digits string) int {
	total := 0
	for i := 0; i < len(digits); i++ {
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		total += int(digits[i]-'0') * weight
	}
	return total
}

// ISBN10To13 converts a valid ISBN-10 into its 978-prefixed ISBN-13 form.
func ISBN10To13(s string) (string, bool) {
	s = stripISBN(s)
	if !ValidateISBN10(s) {
		return "", false
	}
	base := "978" + s[:9]
	check := (10 - isbn13Sum(base)%10) % 10
	return base + strconv.Itoa(check), true
}

// CanonicalizeISBN returns the digits-only ISBN-13 for s, converting ISBN-10
// input. The boolean is false when s fails its checksum or has the wrong length.
func CanonicalizeISBN(s string) (string, bool) {
	s = stripISBN(s)
	switch len(s) {
	case 10:
		return ISBN10To13(s)
	case 13:
		if ValidateISBN13(s) {
			return s, true
		}
	}
	return "", false
}

// ValidateISSN reports whether s is a well-formed ISSN.
func ValidateISSN(s string) bool {
	s = stripISBN(s)
	if len(s) != 8 {
		return false
	}
	total := 0
	for i := 0; i < 7; i++ {
		if !isDigit(s[i]) {
			return false
		}
		total += int(s[i]-'0') * (8 - i)
	}
	switch {
	case s[7] == 'X':
		total += 10
	case isDigit(s[7]):
		total += int(s[7] - '0')
	default:
		return false
	}
	return total%11 == 0
}

// CanonicalizeISSN returns the eight-character ISSN without its hyphen.
func CanonicalizeISSN(s string) (string, bool) {
	s = stripISBN(s)
	if !ValidateISSN(s) {
		return "", false
	}
	return s, true
}

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// NormalizeDOI strips resolver and "doi:" prefixes and lowercases the rest.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "doi:") {
		s = strings.TrimSpace(s[4:])
	}
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.ToLower(s)
}
