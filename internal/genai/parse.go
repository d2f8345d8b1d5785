package genai

import (
	"strconv"
	"strings"
)

// parseFloatTag converts a tag value to a float, tolerating surrounding
// whitespace. Parse failure means "absent", never an error.
func parseFloatTag(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseIntTag converts a tag value to an int, accepting float spellings
// of whole numbers ("1000.0") since exporters disagree on numeric types.
func parseIntTag(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if v, err := strconv.Atoi(trimmed); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// parseBoolTag recognizes the usual string spellings of a boolean.
func parseBoolTag(raw string) (bool, bool) {
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return false, false
	}
	return v, true
}

// splitListTag splits a comma- or JSON-array-style list value into its
// trimmed elements.
func splitListTag(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
