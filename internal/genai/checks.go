package genai

import (
	"sort"
	"strings"
	"time"

	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/security"
)

// Instrumentation can attach pre-computed findings to a span as
//
//	llm.quality.<name>.score / .severity / .details  (or bare llm.quality.<name>)
//	llm.security.<name>.detected / .severity / .details
//
// Values are merged by check name into one finding per distinct name and
// normalized against the known type maps; unrecognized names become
// type "custom", never dropped.
const (
	qualityTagPrefix  = "llm.quality."
	securityTagPrefix = "llm.security."
)

var qualityTypeByName = map[string]quality.CheckType{
	"hallucination": quality.CheckHallucination,
	"toxicity":      quality.CheckToxicity,
	"sentiment":     quality.CheckSentiment,
	"relevance":     quality.CheckRelevance,
	"coherence":     quality.CheckCoherence,
}

var securityTypeByName = map[string]security.CheckType{
	"prompt_injection":  security.CheckPromptInjection,
	"injection":         security.CheckPromptInjection,
	"jailbreak":         security.CheckJailbreak,
	"jailbreak_attempt": security.CheckJailbreak,
	"pii":               security.CheckPII,
	"pii_detected":      security.CheckPII,
	"sensitive_data":    security.CheckSensitiveData,
	"secrets":           security.CheckSensitiveData,
	"malicious_content": security.CheckMalicious,
}

type embeddedCheck struct {
	score    *float64
	severity string
	detected *bool
	details  string
}

// collectEmbedded gathers per-name field fragments for one tag prefix.
func collectEmbedded(tags map[string]string, prefix string) map[string]*embeddedCheck {
	found := make(map[string]*embeddedCheck)

	get := func(name string) *embeddedCheck {
		if c, ok := found[name]; ok {
			return c
		}
		c := &embeddedCheck{}
		found[name] = c
		return c
	}

	for key, value := range tags {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue
		}

		name, field := rest, ""
		if idx := strings.LastIndex(rest, "."); idx > 0 {
			name, field = rest[:idx], rest[idx+1:]
		}

		switch field {
		case "score":
			if v, ok := parseFloatTag(value); ok {
				get(name).score = &v
			}
		case "severity":
			get(name).severity = strings.ToLower(strings.TrimSpace(value))
		case "detected":
			if v, ok := parseBoolTag(value); ok {
				get(name).detected = &v
			}
		case "details":
			get(name).details = value
		case "":
			// Bare key: the value is a score or a severity word.
			if v, ok := parseFloatTag(value); ok {
				get(name).score = &v
			} else {
				get(name).severity = strings.ToLower(strings.TrimSpace(value))
			}
		default:
			// Unknown sub-field; treat the whole rest as a bare name so the
			// finding is still surfaced.
			if v, ok := parseFloatTag(value); ok {
				get(rest).score = &v
			}
		}
	}

	return found
}

func extractQualityChecks(tags map[string]string) []quality.Check {
	found := collectEmbedded(tags, qualityTagPrefix)
	if len(found) == 0 {
		return nil
	}

	now := time.Now().UTC()
	checks := make([]quality.Check, 0, len(found))
	for name, c := range found {
		checkType, ok := qualityTypeByName[name]
		if !ok {
			checkType = quality.CheckCustom
		}
		checks = append(checks, quality.Check{
			Type:      checkType,
			Name:      name,
			Score:     c.score,
			Severity:  normalizeQualitySeverity(c.severity),
			Details:   c.details,
			Timestamp: now,
		})
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return checks
}

func extractSecurityChecks(tags map[string]string) []security.Check {
	found := collectEmbedded(tags, securityTagPrefix)
	if len(found) == 0 {
		return nil
	}

	now := time.Now().UTC()
	checks := make([]security.Check, 0, len(found))
	for name, c := range found {
		checkType, ok := securityTypeByName[name]
		if !ok {
			checkType = security.CheckCustom
		}
		detected := c.detected != nil && *c.detected
		checks = append(checks, security.Check{
			Type:      checkType,
			Name:      name,
			Detected:  detected,
			Severity:  normalizeSecuritySeverity(c.severity),
			Details:   c.details,
			Timestamp: now,
		})
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return checks
}

func normalizeQualitySeverity(raw string) quality.Severity {
	switch raw {
	case "warning", "warn":
		return quality.SeverityWarning
	case "fail", "failed", "error":
		return quality.SeverityFail
	default:
		return quality.SeverityPass
	}
}

func normalizeSecuritySeverity(raw string) security.Severity {
	switch raw {
	case "medium":
		return security.SeverityMedium
	case "high":
		return security.SeverityHigh
	case "critical":
		return security.SeverityCritical
	default:
		return security.SeverityLow
	}
}
