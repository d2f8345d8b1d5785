package quality

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var transitionWords = []string{
	"however", "therefore", "additionally", "furthermore", "moreover",
	"consequently", "meanwhile", "first", "second", "finally", "then",
	"next", "also", "because", "instead", "for example", "in addition",
	"as a result", "on the other hand",
}

var pastTensePattern = regexp.MustCompile(`(?i)\b\w+ed\b|\b(?:was|were|had|did|went|came|said|made|took)\b`)

var presentTensePattern = regexp.MustCompile(`(?i)\b(?:is|are|am|has|have|does|do|goes|comes|says|makes|takes)\b`)

// lowercaseAfterPeriodPattern catches sentence fragments that continue in
// lowercase after a terminating period.
var lowercaseAfterPeriodPattern = regexp.MustCompile(`\.\s+[a-z]`)

const (
	veryShortSentenceWords = 3
	longSentenceAvgWords   = 35
)

// EvaluateCoherence scores the structural quality of the output. Higher
// is better: the score starts at 1.0 and each structural defect subtracts
// a fixed penalty.
func EvaluateCoherence(ec Context, t Thresholds) Check {
	score := 1.0
	var reasons []string

	sentences := splitSentences(ec.LLMOutput)

	if len(sentences) > 0 {
		short := 0
		totalWords := 0
		for _, s := range sentences {
			words := wordCount(s)
			totalWords += words
			if words <= veryShortSentenceWords {
				short++
			}
		}

		if float64(short)/float64(len(sentences)) > 0.5 {
			score -= 0.2
			reasons = append(reasons, "mostly very short sentences")
		}

		if len(sentences) > 2 && duplicateRatio(sentences) > 0.2 {
			score -= 0.2
			reasons = append(reasons, "repeated sentences")
		}

		if len(sentences) > 3 && !containsAnyFold(ec.LLMOutput, transitionWords) {
			score -= 0.1
			reasons = append(reasons, "no transition words across many sentences")
		}

		if float64(totalWords)/float64(len(sentences)) > longSentenceAvgWords {
			score -= 0.1
			reasons = append(reasons, "run-on sentences")
		}
	}

	if len(lowercaseAfterPeriodPattern.FindAllString(ec.LLMOutput, -1)) > 2 {
		score -= 0.15
		reasons = append(reasons, "sentence fragments")
	}

	if mixedTenseDominance(ec.LLMOutput) {
		score -= 0.1
		reasons = append(reasons, "inconsistent tense")
	}

	score = clamp01(score)
	return Check{
		Type:      CheckCoherence,
		Name:      "coherence",
		Score:     scorePtr(score),
		Severity:  classifyQuality(score, t),
		Details:   strings.Join(reasons, "; "),
		Timestamp: time.Now().UTC(),
	}
}

func duplicateRatio(sentences []string) float64 {
	seen := make(map[string]bool, len(sentences))
	duplicates := 0
	for _, s := range sentences {
		key := strings.ToLower(strings.TrimFunc(s, unicode.IsPunct))
		if seen[key] {
			duplicates++
		}
		seen[key] = true
	}
	return float64(duplicates) / float64(len(sentences))
}

// mixedTenseDominance reports whether the text leans heavily on both past
// and present tense at once, a common symptom of stitched-together output.
func mixedTenseDominance(text string) bool {
	past := len(pastTensePattern.FindAllString(text, -1))
	present := len(presentTensePattern.FindAllString(text, -1))
	if past == 0 || present == 0 {
		return false
	}
	total := past + present
	return float64(past)/float64(total) > 0.35 && float64(present)/float64(total) > 0.35
}
