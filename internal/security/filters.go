package security

import "strings"

// protocolAbbreviations are letter prefixes that produce license-shaped
// strings in technical text (HTTP2, MD5DEADBEEF, SHA25600...).
var protocolAbbreviations = []string{
	"HTTP", "HTTPS", "HTML", "JSON", "YAML", "UTF", "SHA", "MD", "RFC",
	"ISO", "IEEE", "TCP", "UDP", "TLS", "SSL", "AES", "RSA", "API",
}

// nonCountryPrefixes are two-letter prefixes commonly seen in identifiers
// that are not passport country codes.
var nonCountryPrefixes = []string{
	"ID", "NO", "PW", "OK", "PR", "QA", "CI",
}

// rejectImplausibleAccountNumber keeps only account matches with at least
// ten digits that are neither all zeros nor a straight ascending or
// descending run.
func rejectImplausibleAccountNumber(match string) bool {
	digits := digitsOf(match)
	if len(digits) < 10 {
		return true
	}
	return allSameDigit(digits) || sequentialDigits(digits)
}

func rejectLicenseLookalike(match string) bool {
	upper := strings.ToUpper(match)
	for _, abbr := range protocolAbbreviations {
		if strings.HasPrefix(upper, abbr) {
			return true
		}
	}
	return false
}

func rejectPassportLookalike(match string) bool {
	upper := strings.ToUpper(match)
	for _, prefix := range nonCountryPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func rejectSequentialOrRepeatedDigits(match string) bool {
	digits := digitsOf(match)
	return allSameDigit(digits) || sequentialDigits(digits)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(digits string) bool {
	if digits == "" {
		return true
	}
	first := digits[0]
	for i := 1; i < len(digits); i++ {
		if digits[i] != first {
			return false
		}
	}
	return true
}

func sequentialDigits(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(digits); i++ {
		diff := int(digits[i]) - int(digits[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	return ascending || descending
}
