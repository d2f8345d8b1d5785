package security

import "strings"

// redactCatalog replaces each surviving match of each catalog pattern
// with a [<NAME>_REDACTED] token. Matches rejected by a pattern's
// false-positive filter are left untouched. Tokens contain no digits or
// pattern-shaped material, so re-running redaction is a no-op.
func redactCatalog(text string, catalog []Pattern) string {
	result := text
	for _, p := range catalog {
		if p.Regexp == nil {
			continue
		}
		token := redactionToken(p.Name)
		result = p.Regexp.ReplaceAllStringFunc(result, func(match string) string {
			if p.FalsePositive != nil && p.FalsePositive(match) {
				return match
			}
			return token
		})
	}
	return result
}

func redactionToken(name string) string {
	return "[" + strings.ToUpper(name) + "_REDACTED]"
}
