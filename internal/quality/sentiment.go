package quality

import (
	"fmt"
	"strings"
	"time"
)

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "happy": true,
	"wonderful": true, "fantastic": true, "helpful": true, "pleased": true,
	"love": true, "enjoy": true, "positive": true, "success": true,
	"successful": true, "glad": true, "perfect": true, "best": true,
	"amazing": true, "delighted": true, "thank": true, "thanks": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "sad": true,
	"horrible": true, "poor": true, "hate": true, "angry": true,
	"negative": true, "failure": true, "failed": true, "worst": true,
	"disappointing": true, "disappointed": true, "unfortunately": true,
	"sorry": true, "problem": true, "wrong": true, "broken": true,
	"unhappy": true,
}

// EvaluateSentiment reports the positive/negative tone of the output on
// a 0..1 scale (0.5 is neutral). It is diagnostic only and never warns
// or fails.
func EvaluateSentiment(ec Context) Check {
	positive, negative := 0, 0
	for _, w := range wordPattern.FindAllString(strings.ToLower(ec.LLMOutput), -1) {
		switch {
		case positiveWords[w]:
			positive++
		case negativeWords[w]:
			negative++
		}
	}

	score := 0.5
	if total := positive + negative; total > 0 {
		score = float64(positive) / float64(total)
	}

	return Check{
		Type:      CheckSentiment,
		Name:      "sentiment",
		Score:     scorePtr(score),
		Severity:  SeverityPass,
		Details:   fmt.Sprintf("positive=%d negative=%d", positive, negative),
		Timestamp: time.Now().UTC(),
	}
}
