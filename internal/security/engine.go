package security

import (
	"strings"
	"time"
)

// RunChecks runs every enabled detector against one exchange. Detectors
// never fail; empty context fields simply produce no findings.
func RunChecks(ec Context, cfg Config) []Check {
	checks := make([]Check, 0, 4)

	if cfg.PromptInjectionEnabled {
		checks = append(checks, DetectPromptInjection(ec))
	}
	if cfg.JailbreakEnabled {
		checks = append(checks, DetectJailbreak(ec))
	}
	if cfg.PIIEnabled {
		checks = append(checks, DetectPII(ec, cfg.CustomPIIPatterns...))
	}
	if cfg.SensitiveDataEnabled {
		checks = append(checks, DetectSensitiveData(ec, cfg.CustomSensitivePatterns...))
	}

	return checks
}

// runContentCatalog scans the combined input+output text with a pattern
// catalog, applies per-row false-positive filters, and resolves each
// surviving row's location by re-testing input and output independently.
func runContentCatalog(checkType CheckType, name string, catalog []Pattern, ec Context) Check {
	check := Check{
		Type:      checkType,
		Name:      name,
		Severity:  SeverityLow,
		Timestamp: time.Now().UTC(),
	}

	combined := ec.UserInput + "\n" + ec.LLMOutput

	var matched []string
	var location Location
	for _, p := range catalog {
		if !patternSurvives(p, combined) {
			continue
		}
		matched = append(matched, p.Name)
		check.Severity = maxSeverity(check.Severity, p.Severity)

		inInput := patternSurvives(p, ec.UserInput)
		inOutput := patternSurvives(p, ec.LLMOutput)
		location = mergeLocation(location, matchLocation(inInput, inOutput))
	}
	if len(matched) == 0 {
		return check
	}

	check.Detected = true
	check.Location = location
	check.Details = "matched patterns: " + strings.Join(matched, ", ")
	return check
}

// patternSurvives reports whether the pattern matches text with at least
// one match passing the false-positive filter.
func patternSurvives(p Pattern, text string) bool {
	if p.Regexp == nil || text == "" {
		return false
	}
	if p.FalsePositive == nil {
		return p.Regexp.MatchString(text)
	}
	for _, match := range p.Regexp.FindAllString(text, -1) {
		if !p.FalsePositive(match) {
			return true
		}
	}
	return false
}

func matchLocation(inInput, inOutput bool) Location {
	switch {
	case inInput && inOutput:
		return LocationBoth
	case inOutput:
		return LocationOutput
	default:
		return LocationInput
	}
}

func mergeLocation(current, next Location) Location {
	if current == "" {
		return next
	}
	if current != next {
		return LocationBoth
	}
	return current
}
