// Package tokens estimates token counts for span payloads that arrive
// without usage tags, using tiktoken encodings with a character-length
// heuristic as a last resort.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encoder is the subset of tiktoken used here, injectable for tests.
type encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// Estimator counts tokens for a given model. Encodings are loaded lazily
// and cached; concurrent use is safe.
type Estimator struct {
	mu       sync.Mutex
	encoders map[string]encoder

	// loadEncoder is swapped out in tests to avoid loading BPE data.
	loadEncoder func(encoding string) (encoder, error)
}

// NewEstimator returns an estimator backed by tiktoken encodings.
func NewEstimator() *Estimator {
	return &Estimator{
		encoders: make(map[string]encoder),
		loadEncoder: func(encoding string) (encoder, error) {
			return tiktoken.GetEncoding(encoding)
		},
	}
}

// Count returns the token count of text under the given model's
// encoding. When the encoding cannot be loaded it falls back to the
// four-characters-per-token heuristic so callers always get a number.
func (e *Estimator) Count(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := e.encoderFor(model)
	if err != nil {
		return heuristicCount(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (e *Estimator) encoderFor(model string) (encoder, error) {
	name := encodingForModel(model)

	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.encoders[name]; ok {
		return enc, nil
	}
	enc, err := e.loadEncoder(name)
	if err != nil {
		return nil, err
	}
	e.encoders[name] = enc
	return enc, nil
}

// encodingForModel maps model families to tiktoken encoding names.
// Non-OpenAI models have no published tokenizer here, so cl100k_base
// serves as the approximation for everything unrecognized.
func encodingForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4o"), strings.Contains(m, "gpt-4.1"),
		strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

// heuristicCount approximates one token per four characters, the common
// rule of thumb for English text.
func heuristicCount(text string) int {
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
