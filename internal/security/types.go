package security

import (
	"regexp"
	"time"
)

// CheckType classifies a security finding.
type CheckType string

const (
	CheckPromptInjection CheckType = "prompt_injection"
	CheckJailbreak       CheckType = "jailbreak_attempt"
	CheckPII             CheckType = "pii_detected"
	CheckSensitiveData   CheckType = "sensitive_data"
	CheckMalicious       CheckType = "malicious_content"
	CheckCustom          CheckType = "custom"
)

// Severity grades how bad a detected issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// maxSeverity returns the higher of two severities.
func maxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// Location names where in an exchange a pattern matched.
type Location string

const (
	LocationInput  Location = "input"
	LocationOutput Location = "output"
	LocationBoth   Location = "both"
)

// Check is one security finding produced by a detection run.
type Check struct {
	Type      CheckType `json:"type"`
	Name      string    `json:"name"`
	Detected  bool      `json:"detected"`
	Severity  Severity  `json:"severity"`
	Details   string    `json:"details,omitempty"`
	Location  Location  `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Context carries one conversational exchange to scan.
type Context struct {
	UserInput string `json:"user_input"`
	LLMOutput string `json:"llm_output"`
}

// Pattern is one row of a detection catalog. FalsePositive, when set,
// rejects individual matches before they count toward a finding.
type Pattern struct {
	Name          string
	Severity      Severity
	Regexp        *regexp.Regexp
	FalsePositive func(match string) bool
}

// Config toggles individual detectors and merges caller-supplied patterns
// with the built-in catalogs.
type Config struct {
	PromptInjectionEnabled bool `yaml:"prompt_injection_enabled" json:"prompt_injection_enabled"`
	JailbreakEnabled       bool `yaml:"jailbreak_enabled" json:"jailbreak_enabled"`
	PIIEnabled             bool `yaml:"pii_enabled" json:"pii_enabled"`
	SensitiveDataEnabled   bool `yaml:"sensitive_data_enabled" json:"sensitive_data_enabled"`

	CustomPIIPatterns       []Pattern `yaml:"-" json:"-"`
	CustomSensitivePatterns []Pattern `yaml:"-" json:"-"`
}

// DefaultConfig enables all four detectors.
func DefaultConfig() Config {
	return Config{
		PromptInjectionEnabled: true,
		JailbreakEnabled:       true,
		PIIEnabled:             true,
		SensitiveDataEnabled:   true,
	}
}
