package security

import "regexp"

// piiPatterns scan the combined input and output text. Rows with a
// FalsePositive filter reject individual matches before they count.
var piiPatterns = []Pattern{
	{
		Name:     "email",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
	},
	{
		Name:     "phone_us",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`),
	},
	{
		Name:     "phone_international",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{2,4}[-.\s]?\d{3,4}[-.\s]?\d{3,4}\b`),
	},
	{
		Name:     "ssn",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		Name:          "credit_card",
		Severity:      SeverityHigh,
		Regexp:        regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011)[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{1,4}\b`),
		FalsePositive: rejectSequentialOrRepeatedDigits,
	},
	{
		Name:     "ip_address",
		Severity: SeverityLow,
		Regexp:   regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	},
	{
		Name:     "date_of_birth",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:dob|date\s+of\s+birth|born(?:\s+on)?)\s*:?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	},
	{
		Name:          "passport",
		Severity:      SeverityMedium,
		Regexp:        regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`),
		FalsePositive: rejectPassportLookalike,
	},
	{
		Name:          "drivers_license",
		Severity:      SeverityMedium,
		Regexp:        regexp.MustCompile(`\b[A-Z]{1,4}\d{5,9}\b`),
		FalsePositive: rejectLicenseLookalike,
	},
	{
		Name:          "bank_account",
		Severity:      SeverityHigh,
		Regexp:        regexp.MustCompile(`(?i)\b(?:account|acct)\.?\s*(?:number|no|#)?\s*:?\s*(\d[\d\s-]{8,})\b`),
		FalsePositive: rejectImplausibleAccountNumber,
	},
	{
		Name:     "iban",
		Severity: SeverityHigh,
		Regexp:   regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
	},
	{
		Name:     "medical_record_number",
		Severity: SeverityMedium,
		Regexp:   regexp.MustCompile(`(?i)\b(?:mrn|medical\s+record(?:\s+number)?)\s*:?\s*\d{6,10}\b`),
	},
}

// DetectPII scans input and output for personally identifiable
// information. Extra patterns are merged after the built-in catalog.
func DetectPII(ec Context, extra ...Pattern) Check {
	catalog := append(append([]Pattern{}, piiPatterns...), extra...)
	return runContentCatalog(CheckPII, "pii_detected", catalog, ec)
}

// RedactPII returns text with every surviving PII match replaced by a
// [<NAME>_REDACTED] token. The input string is never modified and the
// transform is idempotent: redaction tokens match none of the patterns.
func RedactPII(text string, extra ...Pattern) string {
	catalog := append(append([]Pattern{}, piiPatterns...), extra...)
	return redactCatalog(text, catalog)
}
