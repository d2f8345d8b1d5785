package tokens

import (
	"errors"
	"strings"
	"testing"
)

type fakeEncoder struct {
	perWord bool
}

func (f fakeEncoder) Encode(text string, _, _ []string) []int {
	if f.perWord {
		return make([]int, len(strings.Fields(text)))
	}
	return make([]int, len(text))
}

func newFakeEstimator(load func(encoding string) (encoder, error)) *Estimator {
	return &Estimator{
		encoders:    make(map[string]encoder),
		loadEncoder: load,
	}
}

func TestCountUsesLoadedEncoding(t *testing.T) {
	t.Parallel()

	est := newFakeEstimator(func(string) (encoder, error) {
		return fakeEncoder{perWord: true}, nil
	})

	if got := est.Count("gpt-4o", "one two three"); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestCountEmptyText(t *testing.T) {
	t.Parallel()

	est := newFakeEstimator(func(string) (encoder, error) {
		t.Fatal("loadEncoder called for empty text")
		return nil, nil
	})

	if got := est.Count("gpt-4o", ""); got != 0 {
		t.Fatalf("Count(empty) = %d, want 0", got)
	}
}

func TestCountFallsBackToHeuristic(t *testing.T) {
	t.Parallel()

	est := newFakeEstimator(func(string) (encoder, error) {
		return nil, errors.New("no bpe data")
	})

	tests := []struct {
		text string
		want int
	}{
		{"abcd", 1},
		{"abcde", 2},
		{"x", 1},
		{strings.Repeat("a", 40), 10},
	}
	for _, tc := range tests {
		if got := est.Count("gpt-4o", tc.text); got != tc.want {
			t.Fatalf("Count(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestEncodingsAreCachedPerName(t *testing.T) {
	t.Parallel()

	loads := make(map[string]int)
	est := newFakeEstimator(func(encoding string) (encoder, error) {
		loads[encoding]++
		return fakeEncoder{}, nil
	})

	est.Count("gpt-4o", "hello")
	est.Count("gpt-4o-mini", "hello")
	est.Count("o1-preview", "hello")
	est.Count("gpt-3.5-turbo", "hello")
	est.Count("claude-3-5-sonnet", "hello")

	if loads["o200k_base"] != 1 {
		t.Fatalf("o200k_base loaded %d times, want 1", loads["o200k_base"])
	}
	if loads["cl100k_base"] != 1 {
		t.Fatalf("cl100k_base loaded %d times, want 1", loads["cl100k_base"])
	}
}

func TestLoadFailureIsRetriedNextCall(t *testing.T) {
	t.Parallel()

	calls := 0
	est := newFakeEstimator(func(string) (encoder, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return fakeEncoder{perWord: true}, nil
	})

	if got := est.Count("gpt-4", "four words right here"); got != 6 {
		t.Fatalf("fallback Count = %d, want heuristic 6", got)
	}
	if got := est.Count("gpt-4", "four words right here"); got != 4 {
		t.Fatalf("second Count = %d, want 4 from loaded encoder", got)
	}
}

func TestEncodingForModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4o-mini-2024-07-18", "o200k_base"},
		{"gpt-4.1", "o200k_base"},
		{"o1-mini", "o200k_base"},
		{"o3-mini", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"claude-3-5-sonnet", "cl100k_base"},
		{"", "cl100k_base"},
	}
	for _, tc := range tests {
		if got := encodingForModel(tc.model); got != tc.want {
			t.Fatalf("encodingForModel(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}
