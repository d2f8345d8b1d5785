package quality

import "time"

// CheckType classifies a quality finding.
type CheckType string

const (
	CheckHallucination CheckType = "hallucination"
	CheckToxicity      CheckType = "toxicity"
	CheckSentiment     CheckType = "sentiment"
	CheckRelevance     CheckType = "relevance"
	CheckCoherence     CheckType = "coherence"
	CheckCustom        CheckType = "custom"
)

// Severity is the coarse outcome of a quality check.
type Severity string

const (
	SeverityPass    Severity = "pass"
	SeverityWarning Severity = "warning"
	SeverityFail    Severity = "fail"
)

// Check is one quality finding produced by an evaluation run.
type Check struct {
	Type      CheckType `json:"type"`
	Name      string    `json:"name"`
	Score     *float64  `json:"score,omitempty"`
	Severity  Severity  `json:"severity"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Context carries one conversational exchange to evaluate.
type Context struct {
	UserInput          string   `json:"user_input"`
	LLMOutput          string   `json:"llm_output"`
	ProvidedContext    []string `json:"provided_context,omitempty"`
	SystemInstructions string   `json:"system_instructions,omitempty"`
	ExpectedTopics     []string `json:"expected_topics,omitempty"`
}

// Thresholds holds the warning/fail cutoffs for one check. Direction
// depends on the check: risk scores fail above the cutoffs, quality
// scores fail below them.
type Thresholds struct {
	Warning float64 `yaml:"warning" json:"warning"`
	Fail    float64 `yaml:"fail" json:"fail"`
}

// Config toggles individual checks and overrides their thresholds.
type Config struct {
	HallucinationEnabled bool `yaml:"hallucination_enabled" json:"hallucination_enabled"`
	RelevanceEnabled     bool `yaml:"relevance_enabled" json:"relevance_enabled"`
	ToxicityEnabled      bool `yaml:"toxicity_enabled" json:"toxicity_enabled"`
	SentimentEnabled     bool `yaml:"sentiment_enabled" json:"sentiment_enabled"`
	CoherenceEnabled     bool `yaml:"coherence_enabled" json:"coherence_enabled"`

	Hallucination Thresholds `yaml:"hallucination" json:"hallucination"`
	Relevance     Thresholds `yaml:"relevance" json:"relevance"`
	Toxicity      Thresholds `yaml:"toxicity" json:"toxicity"`
	Coherence     Thresholds `yaml:"coherence" json:"coherence"`
}

// DefaultConfig returns the default check configuration: everything
// enabled, risk checks warning at 0.3 and failing at 0.6, quality checks
// warning at 0.6 and failing at 0.3.
func DefaultConfig() Config {
	return Config{
		HallucinationEnabled: true,
		RelevanceEnabled:     true,
		ToxicityEnabled:      true,
		SentimentEnabled:     true,
		CoherenceEnabled:     true,
		Hallucination:        Thresholds{Warning: 0.3, Fail: 0.6},
		Relevance:            Thresholds{Warning: 0.6, Fail: 0.3},
		Toxicity:             Thresholds{Warning: 0.3, Fail: 0.6},
		Coherence:            Thresholds{Warning: 0.6, Fail: 0.3},
	}
}

// severityEpsilon absorbs float drift from accumulated penalties so a
// score sitting on a cutoff (within rounding) lands on the cutoff's side.
const severityEpsilon = 1e-9

// classifyRisk maps a higher-is-worse score to a severity.
func classifyRisk(score float64, t Thresholds) Severity {
	switch {
	case score >= t.Fail-severityEpsilon:
		return SeverityFail
	case score >= t.Warning-severityEpsilon:
		return SeverityWarning
	default:
		return SeverityPass
	}
}

// classifyQuality maps a higher-is-better score to a severity.
func classifyQuality(score float64, t Thresholds) Severity {
	switch {
	case score <= t.Fail+severityEpsilon:
		return SeverityFail
	case score <= t.Warning+severityEpsilon:
		return SeverityWarning
	default:
		return SeverityPass
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func scorePtr(v float64) *float64 {
	return &v
}
