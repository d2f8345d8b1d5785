package security

import "regexp"

// sensitivePatterns detect credential and secret material in either side
// of the exchange.
var sensitivePatterns = []Pattern{
	{
		Name:     "api_key",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`(?i)\b(?:sk|pk|rk)[-_](?:live|test|proj)?[-_]?[a-z0-9]{16,}\b`),
	},
	{
		Name:     "bearer_token",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\bBearer\s+[a-z0-9_.\-/+=]{16,}`),
	},
	{
		Name:     "aws_access_key",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
	},
	{
		Name:     "aws_secret_key",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`(?i)\baws_?secret(?:_access)?_?key\b\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}["']?`),
	},
	{
		Name:     "private_key",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
	},
	{
		Name:     "connection_string",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp):\/\/[^\s:@]+:[^\s@]+@[^\s]+`),
	},
	{
		Name:     "password_assignment",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\b\s*[:=]\s*["']?[^\s"']{6,}["']?`),
	},
	{
		Name:     "jwt",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`),
	},
	{
		Name:     "github_token",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
	},
	{
		Name:     "slack_token",
		Severity: SeverityCritical,
		Regexp:   regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),
	},
	{
		Name:     "generic_secret",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:secret|api[-_]?token|auth[-_]?token|access[-_]?token)\b\s*[:=]\s*["']?[A-Za-z0-9_\-/+=]{12,}["']?`),
	},
}

// DetectSensitiveData scans input and output for credential material.
// Extra patterns are merged after the built-in catalog.
func DetectSensitiveData(ec Context, extra ...Pattern) Check {
	catalog := append(append([]Pattern{}, sensitivePatterns...), extra...)
	return runContentCatalog(CheckSensitiveData, "sensitive_data", catalog, ec)
}

// RedactSensitiveData returns text with every surviving secret match
// replaced by a [<NAME>_REDACTED] token. Idempotent; never mutates text.
func RedactSensitiveData(text string, extra ...Pattern) string {
	catalog := append(append([]Pattern{}, sensitivePatterns...), extra...)
	return redactCatalog(text, catalog)
}
