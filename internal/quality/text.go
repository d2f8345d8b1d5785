package quality

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]*`)

var sentenceSplitPattern = regexp.MustCompile(`[.!?]+\s+|[.!?]+$`)

// stopwords are excluded from keyword overlap so shared filler does not
// count as topical agreement.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "have": true, "has": true, "was": true,
	"were": true, "are": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "your": true, "you": true, "they": true,
	"them": true, "their": true, "there": true, "been": true, "being": true,
	"into": true, "than": true, "then": true, "does": true, "did": true,
	"can": true, "not": true, "but": true, "all": true, "any": true,
	"how": true, "why": true, "who": true, "its": true, "also": true,
	"more": true, "some": true, "such": true, "only": true, "over": true,
	"very": true, "just": true, "like": true, "other": true, "these": true,
	"those": true, "each": true, "because": true, "between": true,
}

// keywords returns the lowercased content words of text, stopwords and
// words shorter than four characters removed.
func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 4 || stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// bigrams returns the set of adjacent lowercased word pairs in text.
func bigrams(text string) map[string]bool {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := make(map[string]bool)
	for i := 0; i+1 < len(words); i++ {
		out[words[i]+" "+words[i+1]] = true
	}
	return out
}

// splitSentences breaks text into trimmed non-empty sentences.
func splitSentences(text string) []string {
	parts := sentenceSplitPattern.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func containsAnyFold(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
