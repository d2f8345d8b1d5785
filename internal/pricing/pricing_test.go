package pricing

import (
	"math"
	"sort"
	"testing"
)

func costNear(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("cost = %v, want %v", got, want)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	tests := []struct {
		name      string
		model     string
		provider  string
		wantModel string
	}{
		{"exact", "gpt-4-turbo", "", "gpt-4-turbo"},
		{"exact with provider", "gpt-4-turbo", "openai", "gpt-4-turbo"},
		{"case and separators normalized", "GPT-4 Turbo", "", "gpt-4-turbo"},
		{"underscore spelling", "gpt_4_turbo", "", "gpt-4-turbo"},
		{"provider prefixed", "openai/gpt-4-turbo", "", "gpt-4-turbo"},
		{"versioned suffix", "gpt-4-turbo-2024-04-09", "", "gpt-4-turbo"},
		{"anthropic snapshot name", "claude-3-5-sonnet-20241022", "", "claude-3-5-sonnet"},
		{"specific name not shadowed by family", "gpt-4o-mini", "", "gpt-4o-mini"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			entry := calc.Lookup(tc.model, tc.provider)
			if entry == nil {
				t.Fatalf("Lookup(%q, %q) = nil", tc.model, tc.provider)
			}
			if entry.Model != tc.wantModel {
				t.Fatalf("Lookup(%q, %q) = %q, want %q", tc.model, tc.provider, entry.Model, tc.wantModel)
			}
		})
	}

	if entry := calc.Lookup("totally-unknown-model", ""); entry != nil {
		t.Fatalf("Lookup(unknown) = %+v, want nil", entry)
	}
	if entry := calc.Lookup("", "openai"); entry != nil {
		t.Fatalf("Lookup(empty) = %+v, want nil", entry)
	}
}

func TestLookupProviderSelectsBetweenSameModelEntries(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(
		ModelPricing{Model: "llama-3.1-70b", Provider: "groq", InputPerM: 0.59, OutputPerM: 0.79},
	)

	hosted := calc.Lookup("llama-3.1-70b", "groq")
	if hosted == nil || hosted.Provider != "groq" {
		t.Fatalf("Lookup with provider groq = %+v, want groq entry", hosted)
	}
	if hosted.InputPerM != 0.59 {
		t.Fatalf("groq InputPerM = %v, want 0.59", hosted.InputPerM)
	}

	base := calc.Lookup("llama-3.1-70b", "meta")
	if base == nil || base.Provider != "meta" {
		t.Fatalf("Lookup with provider meta = %+v, want meta entry", base)
	}
	if base.InputPerM != 0.90 {
		t.Fatalf("meta InputPerM = %v, want 0.90", base.InputPerM)
	}

	// Without a provider the first catalog entry for the model wins.
	unqualified := calc.Lookup("llama-3.1-70b", "")
	if unqualified == nil || unqualified.Provider != "meta" {
		t.Fatalf("unqualified Lookup = %+v, want meta entry", unqualified)
	}
}

func TestLookupProviderSteersSubstringMatch(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	entry := calc.Lookup("claude-3-5-sonnet-20241022", "anthropic")
	if entry == nil || entry.Provider != "anthropic" || entry.Model != "claude-3-5-sonnet" {
		t.Fatalf("Lookup = %+v, want anthropic claude-3-5-sonnet", entry)
	}
}

func TestCost(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	result := calc.Cost(1000, 500, "gpt-4-turbo", "openai")
	costNear(t, result.Cost, 0.025)
	if result.Currency != "USD" {
		t.Fatalf("Currency = %q, want USD", result.Currency)
	}
	if result.Pricing == nil || result.Pricing.Model != "gpt-4-turbo" {
		t.Fatalf("Pricing = %+v, want gpt-4-turbo entry", result.Pricing)
	}
	if result.Estimated {
		t.Fatal("Estimated = true for a catalog hit")
	}

	unknown := calc.Cost(1000, 500, "no-such-model", "")
	if unknown.Cost != 0 || unknown.Pricing != nil {
		t.Fatalf("unknown model cost = %+v, want zero with nil pricing", unknown)
	}

	zero := calc.Cost(0, 0, "gpt-4-turbo", "")
	if zero.Cost != 0 {
		t.Fatalf("zero tokens cost = %v, want 0", zero.Cost)
	}
	if zero.Pricing == nil {
		t.Fatal("zero tokens lost the pricing entry")
	}

	negative := calc.Cost(-10, -5, "gpt-4-turbo", "")
	if negative.Cost != 0 {
		t.Fatalf("negative tokens cost = %v, want 0", negative.Cost)
	}
}

func TestEstimatedCost(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	known := calc.EstimatedCost(1000, 500, "gpt-4-turbo", "openai")
	costNear(t, known.Cost, 0.025)
	if known.Estimated {
		t.Fatal("Estimated = true for a catalog hit")
	}

	unknown := calc.EstimatedCost(1000, 500, "no-such-model", "")
	costNear(t, unknown.Cost, 0.0125)
	if !unknown.Estimated {
		t.Fatal("Estimated = false for a fallback-priced model")
	}
	if unknown.Pricing != nil {
		t.Fatalf("fallback pricing entry = %+v, want nil", unknown.Pricing)
	}
}

func TestOverridesReplaceCatalogEntries(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(
		ModelPricing{Model: "gpt-4o", Provider: "openai", InputPerM: 1.00, OutputPerM: 2.00},
		ModelPricing{Model: "in-house-7b", Provider: "acme", InputPerM: 0.05, OutputPerM: 0.05},
	)

	replaced := calc.Lookup("gpt-4o", "openai")
	if replaced == nil || replaced.InputPerM != 1.00 || replaced.OutputPerM != 2.00 {
		t.Fatalf("override not applied: %+v", replaced)
	}

	added := calc.Lookup("in-house-7b", "acme")
	if added == nil || added.Provider != "acme" {
		t.Fatalf("added entry missing: %+v", added)
	}

	result := calc.Cost(1_000_000, 1_000_000, "gpt-4o", "")
	costNear(t, result.Cost, 3.00)
}

func TestModelsSorted(t *testing.T) {
	t.Parallel()

	models := NewCalculator().Models()
	if len(models) == 0 {
		t.Fatal("empty catalog")
	}
	if !sort.StringsAreSorted(models) {
		t.Fatalf("Models() not sorted: %v", models)
	}
}

func TestFormatCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cost float64
		want string
	}{
		{0, "N/A"},
		{12.3456, "$12.35"},
		{1, "$1.00"},
		{0.5, "$0.500"},
		{0.025, "$0.0250"},
		{0.0005, "$0.000500"},
	}

	for _, tc := range tests {
		tc := tc
		if got := FormatCost(tc.cost); got != tc.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tc.cost, got, tc.want)
		}
	}
}
