package security

import (
	"regexp"
	"strings"
	"time"
)

// injectionPatterns are checked against user input only, in order. The
// finding's severity is the maximum among all matched rows.
var injectionPatterns = []Pattern{
	{
		Name:     "ignore_instructions",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:ignore|disregard|forget)\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier|your)\s+(?:instructions?|prompts?|rules?|guidelines?|context)\b`),
	},
	{
		Name:     "extract_prompt",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:reveal|show|print|repeat|display|output)\b.{0,40}\b(?:system\s+prompt|initial\s+prompt|your\s+(?:instructions?|prompt|rules))\b`),
	},
	{
		Name:     "new_instructions",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:new|updated|different|override)\s+instructions?\s*:`),
	},
	{
		Name:     "role_marker",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?im)^\s*(?:system|assistant)\s*:`),
	},
	{
		Name:     "system_tag",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`(?i)<\s*/?\s*system\s*>|\[\s*INST\s*\]`),
	},
	{
		Name:     "delimiter_escape",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile("(?i)(?:---+|===+|\"\"\"|```)\\s*(?:system|instructions?|rules?)\\b"),
	},
	{
		Name:     "role_override",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:you\s+are\s+now|from\s+now\s+on\s+you\s+(?:are|will)|act\s+as\s+if\s+you|pretend\s+(?:to\s+be|you\s+are))\b`),
	},
	{
		Name:     "payload_smuggling",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:decode|translate)\s+(?:this|the\s+following)\s+(?:base64|rot13|hex)\b`),
	},
}

// jailbreakPatterns mirror the injection catalog for bypass attempts.
var jailbreakPatterns = []Pattern{
	{
		Name:     "dan_mode",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`(?i)\b(?:DAN\s+mode|do\s+anything\s+now)\b`),
	},
	{
		Name:     "developer_mode",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:developer|debug|god)\s+mode\s+(?:enabled|activated|on)\b|\benable\s+(?:developer|debug|god)\s+mode\b`),
	},
	{
		Name:     "no_restrictions",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\bwithout\s+(?:any\s+)?(?:restrictions?|limitations?|filters?|censorship)\b|\bno\s+ethical\s+(?:guidelines?|constraints?)\b`),
	},
	{
		Name:     "hypothetical_bypass",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:hypothetically|in\s+a\s+fictional\s+(?:world|story|scenario)|for\s+(?:a\s+)?(?:novel|research\s+purposes?)\s+only)\b.{0,60}\b(?:how\s+to|explain|describe)\b`),
	},
	{
		Name:     "persona_jailbreak",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:evil|unfiltered|uncensored)\s+(?:ai|assistant|version\s+of\s+yourself)\b`),
	},
	{
		Name:     "explicit_jailbreak",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`(?i)\bjail\s?break(?:ing|ed)?\b`),
	},
}

// DetectPromptInjection scans the user input for instruction-override
// attempts.
func DetectPromptInjection(ec Context) Check {
	return runInputCatalog(CheckPromptInjection, "prompt_injection", injectionPatterns, ec.UserInput)
}

// DetectJailbreak scans the user input for guardrail-bypass attempts.
func DetectJailbreak(ec Context) Check {
	return runInputCatalog(CheckJailbreak, "jailbreak_attempt", jailbreakPatterns, ec.UserInput)
}

// runInputCatalog evaluates an ordered pattern catalog against input text
// and arbitrates severity by maximum across matches.
func runInputCatalog(checkType CheckType, name string, catalog []Pattern, input string) Check {
	check := Check{
		Type:      checkType,
		Name:      name,
		Severity:  SeverityLow,
		Timestamp: time.Now().UTC(),
	}

	var matched []string
	for _, p := range catalog {
		if p.Regexp.MatchString(input) {
			matched = append(matched, p.Name)
			check.Severity = maxSeverity(check.Severity, p.Severity)
		}
	}
	if len(matched) == 0 {
		return check
	}

	check.Detected = true
	check.Location = LocationInput
	check.Details = "matched patterns: " + strings.Join(matched, ", ")
	return check
}
