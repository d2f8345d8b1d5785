package quality

import (
	"regexp"
	"strings"
	"time"
)

// claimPatterns match text fragments that assert something checkable:
// dates, quantities, attributions, and superlatives. They drive the
// supported-vs-unsupported ratio against caller-provided context.
var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:1[0-9]|20)\d{2}\b`),
	regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:%|percent)\b`),
	regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d+)?\s+(?:people|users|dollars|years|times|miles|kilometers)\b`),
	regexp.MustCompile(`(?i)\b(?:studies|research|experts|scientists|data)\s+(?:show|shows|suggest|suggests|indicate|indicates|prove|proves|confirm|confirms)\b`),
	regexp.MustCompile(`(?i)\baccording\s+to\b[^.]{0,60}`),
	regexp.MustCompile(`(?i)\b(?:the\s+)?(?:first|largest|smallest|fastest|oldest|newest|most\s+\w+|least\s+\w+)\b[^.]{0,40}`),
}

var hedgingMarkers = []string{
	"might", "may be", "perhaps", "possibly", "it seems", "i think",
	"i believe", "likely", "could be", "appears to", "not sure",
	"uncertain", "as far as i know",
}

var absolutistPattern = regexp.MustCompile(`(?i)\b(?:always|never|all|none|every|everyone|no one|nothing|everything)\b`)

var negationPattern = regexp.MustCompile(`(?i)\b(?:not|no|never|isn't|wasn't|aren't|weren't|doesn't|didn't|don't|cannot|can't)\b`)

const (
	shortContextLimit = 500
	longOutputFactor  = 2
)

// EvaluateHallucination scores the risk that the output asserts facts
// unsupported by the provided context. Higher is worse.
func EvaluateHallucination(ec Context, t Thresholds) Check {
	score := 0.0
	var reasons []string

	claims := extractClaims(ec.LLMOutput)
	if len(claims) > 0 {
		unsupported := 0
		for _, claim := range claims {
			if !claimSupported(claim, ec.ProvidedContext) {
				unsupported++
			}
		}
		if ratio := float64(unsupported) / float64(len(claims)); ratio > 0.5 {
			score += 0.3
			reasons = append(reasons, "majority of factual claims unsupported by provided context")
		}
	}

	if containsAnyFold(ec.LLMOutput, hedgingMarkers) {
		score -= 0.1
	}

	if negatesInputClaim(ec.UserInput, ec.LLMOutput) {
		score += 0.15
		reasons = append(reasons, "output negates a claim stated in the user input")
	}

	if len(ec.ProvidedContext) == 0 && absolutistPattern.MatchString(ec.LLMOutput) {
		score += 0.2
		reasons = append(reasons, "absolutist language without supporting context")
	}

	if contextLen := totalLength(ec.ProvidedContext); contextLen > 0 &&
		contextLen < shortContextLimit &&
		len(ec.LLMOutput) > longOutputFactor*contextLen {
		score += 0.15
		reasons = append(reasons, "output is far longer than the short provided context")
	}

	score = clamp01(score)
	return Check{
		Type:      CheckHallucination,
		Name:      "hallucination_risk",
		Score:     scorePtr(score),
		Severity:  classifyRisk(score, t),
		Details:   strings.Join(reasons, "; "),
		Timestamp: time.Now().UTC(),
	}
}

func extractClaims(text string) []string {
	var claims []string
	for _, p := range claimPatterns {
		claims = append(claims, p.FindAllString(text, -1)...)
	}
	return claims
}

func claimSupported(claim string, providedContext []string) bool {
	needle := strings.ToLower(strings.TrimSpace(claim))
	for _, ctx := range providedContext {
		if strings.Contains(strings.ToLower(ctx), needle) {
			return true
		}
	}
	return false
}

// negatesInputClaim reports whether a claim fragment from the user input
// reappears in the output within a negated sentence.
func negatesInputClaim(input, output string) bool {
	if input == "" || output == "" {
		return false
	}
	inputClaims := extractClaims(input)
	if len(inputClaims) == 0 {
		return false
	}
	for _, sentence := range splitSentences(output) {
		if !negationPattern.MatchString(sentence) {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, claim := range inputClaims {
			if strings.Contains(lower, strings.ToLower(strings.TrimSpace(claim))) {
				return true
			}
		}
	}
	return false
}

func totalLength(parts []string) int {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	return total
}
