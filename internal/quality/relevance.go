package quality

import (
	"regexp"
	"strings"
	"time"
)

// questionAnswerPatterns pair a question opener with a pattern the answer
// is expected to exhibit.
var questionAnswerPatterns = []struct {
	opener *regexp.Regexp
	answer *regexp.Regexp
}{
	{regexp.MustCompile(`(?i)^\s*when\b`), regexp.MustCompile(`(?i)\b(?:1[0-9]|20)\d{2}\b|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b|\b\d{1,2}:\d{2}\b|\b(?:today|tomorrow|yesterday|year|month|week|day)s?\b`)},
	{regexp.MustCompile(`(?i)^\s*where\b`), regexp.MustCompile(`(?i)\b(?:in|at|near|located|north|south|east|west|city|country|region)\b`)},
	{regexp.MustCompile(`(?i)^\s*who\b`), regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b|(?i:\b(?:person|people|team|company|author|founder)\b)`)},
	{regexp.MustCompile(`(?i)^\s*why\b`), regexp.MustCompile(`(?i)\b(?:because|due to|since|reason|caused by|so that)\b`)},
	{regexp.MustCompile(`(?i)^\s*how\s+(?:do|does|can|to|would|should)\b`), regexp.MustCompile(`(?i)\b(?:first|then|next|step|finally|by|you can|start by)\b`)},
	{regexp.MustCompile(`(?i)^\s*how\s+(?:many|much)\b`), regexp.MustCompile(`\b\d+\b`)},
	{regexp.MustCompile(`(?i)^\s*what\b`), regexp.MustCompile(`(?i)\b(?:is|are|was|were|means|refers to|consists of)\b`)},
	{regexp.MustCompile(`(?i)^\s*(?:can|could|is|are|do|does|will|would|should)\b`), regexp.MustCompile(`(?i)^\s*(?:yes|no|sure|certainly|unfortunately|it depends|absolutely|of course)\b`)},
}

var offTopicMarkers = []string{
	"i cannot help with that", "i can't help with that",
	"that is unrelated", "that's unrelated", "off-topic",
	"i don't have information about that",
	"this question is outside", "i'm unable to answer",
}

// EvaluateRelevance scores how well the output addresses the user input.
// Higher is better. With no user input there is nothing to be irrelevant
// to, so the result passes with a full score.
func EvaluateRelevance(ec Context, t Thresholds) Check {
	now := time.Now().UTC()
	if strings.TrimSpace(ec.UserInput) == "" {
		return Check{
			Type:      CheckRelevance,
			Name:      "response_relevance",
			Score:     scorePtr(1),
			Severity:  SeverityPass,
			Timestamp: now,
		}
	}

	score := 0.0
	var reasons []string

	inputKeywords := keywords(ec.UserInput)
	outputKeywords := keywords(ec.LLMOutput)
	if len(inputKeywords) > 0 {
		shared := 0
		for w := range inputKeywords {
			if outputKeywords[w] {
				shared++
			}
		}
		overlap := float64(shared) / float64(len(inputKeywords))
		score += 0.4 * overlap
		if overlap == 0 {
			reasons = append(reasons, "no keyword overlap with the question")
		}
	} else {
		// Nothing substantive to match against.
		score += 0.4
	}

	if len(ec.ExpectedTopics) > 0 {
		covered := 0
		lowerOutput := strings.ToLower(ec.LLMOutput)
		for _, topic := range ec.ExpectedTopics {
			if topic != "" && strings.Contains(lowerOutput, strings.ToLower(topic)) {
				covered++
			}
		}
		coverage := float64(covered) / float64(len(ec.ExpectedTopics))
		score += 0.3 * coverage
		if coverage < 1 {
			reasons = append(reasons, "expected topics not fully covered")
		}
	} else {
		score += 0.15
	}

	if answersQuestionType(ec.UserInput, ec.LLMOutput) {
		score += 0.2
	} else {
		reasons = append(reasons, "answer shape does not match the question type")
	}

	inputBigrams := bigrams(ec.UserInput)
	if len(inputBigrams) > 0 {
		outputBigrams := bigrams(ec.LLMOutput)
		shared := 0
		for b := range inputBigrams {
			if outputBigrams[b] {
				shared++
			}
		}
		score += 0.1 * float64(shared) / float64(len(inputBigrams))
	}

	if containsAnyFold(ec.LLMOutput, offTopicMarkers) {
		score -= 0.3
		reasons = append(reasons, "output declines or declares the question off-topic")
	}

	score = clamp01(score)
	return Check{
		Type:      CheckRelevance,
		Name:      "response_relevance",
		Score:     scorePtr(score),
		Severity:  classifyQuality(score, t),
		Details:   strings.Join(reasons, "; "),
		Timestamp: now,
	}
}

func answersQuestionType(input, output string) bool {
	for _, qa := range questionAnswerPatterns {
		if qa.opener.MatchString(input) {
			return qa.answer.MatchString(output)
		}
	}
	// Not a recognized question shape; any answer shape is acceptable.
	return true
}
