// Package pricing estimates LLM usage cost from token counts and a
// per-model catalog of USD rates per million tokens.
package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// ModelPricing holds USD rates per one million tokens.
type ModelPricing struct {
	Model      string  `json:"model"`
	Provider   string  `json:"provider"`
	InputPerM  float64 `json:"input_per_million"`
	OutputPerM float64 `json:"output_per_million"`
}

// CostResult is one cost computation. Pricing is nil when no catalog
// entry matched and Estimated reports whether fallback rates were used.
type CostResult struct {
	Cost      float64       `json:"cost"`
	Currency  string        `json:"currency"`
	Pricing   *ModelPricing `json:"pricing,omitempty"`
	Estimated bool          `json:"estimated,omitempty"`
}

// Fallback rates applied when a model has no catalog entry, so traces
// with unknown models still produce an order-of-magnitude estimate.
const (
	fallbackInputPerM  = 5.0
	fallbackOutputPerM = 15.0
)

// Calculator resolves models against a pricing catalog. The zero value is
// not usable; construct with NewCalculator so overrides merge correctly.
type Calculator struct {
	entries []ModelPricing
	byKey   map[string]int
	byModel map[string][]int
}

// NewCalculator builds a calculator over the built-in catalog merged with
// the given overrides. An override with the same provider and model as a
// catalog entry replaces its rates; a different provider for the same
// model becomes a separate entry.
func NewCalculator(overrides ...ModelPricing) *Calculator {
	c := &Calculator{
		byKey:   make(map[string]int),
		byModel: make(map[string][]int),
	}
	for _, entry := range defaultCatalog {
		c.add(entry)
	}
	for _, entry := range overrides {
		c.add(entry)
	}
	return c
}

func (c *Calculator) add(entry ModelPricing) {
	modelKey := normalizeModel(entry.Model)
	if modelKey == "" {
		return
	}
	key := normalizeModel(entry.Provider) + ":" + modelKey
	if idx, ok := c.byKey[key]; ok {
		c.entries[idx] = entry
		return
	}
	c.byKey[key] = len(c.entries)
	c.byModel[modelKey] = append(c.byModel[modelKey], len(c.entries))
	c.entries = append(c.entries, entry)
}

// Lookup resolves a model name, optionally qualified by a provider, to
// its catalog entry. Resolution is three-stage: exact normalized model
// match (an entry matching the given provider wins over one that merely
// shares the model name), then substring match preferring the given
// provider or a provider spelled inside the query, then substring match
// against any entry. Returns nil on miss.
func (c *Calculator) Lookup(model, provider string) *ModelPricing {
	key := normalizeModel(model)
	if key == "" {
		return nil
	}
	prov := normalizeModel(provider)

	if idxs, ok := c.byModel[key]; ok {
		idx := idxs[0]
		for _, i := range idxs {
			if entryProviderRank(normalizeModel(c.entries[i].Provider), prov, key) == 0 {
				idx = i
				break
			}
		}
		entry := c.entries[idx]
		return &entry
	}

	var best *ModelPricing
	bestRank := 2
	for i := range c.entries {
		entryKey := normalizeModel(c.entries[i].Model)
		if !strings.Contains(key, entryKey) && !strings.Contains(entryKey, key) {
			continue
		}
		rank := entryProviderRank(normalizeModel(c.entries[i].Provider), prov, key)
		if best == nil || rank < bestRank {
			entry := c.entries[i]
			best, bestRank = &entry, rank
		}
		if bestRank == 0 {
			break
		}
	}
	return best
}

// entryProviderRank orders candidate entries for one query: 0 when the
// entry's provider matches the given provider or is spelled inside the
// model query, 1 otherwise.
func entryProviderRank(entryProv, prov, modelKey string) int {
	if entryProv == "" {
		return 1
	}
	if prov != "" && entryProv == prov {
		return 0
	}
	if strings.Contains(modelKey, entryProv) {
		return 0
	}
	return 1
}

// Cost computes the USD cost of one call. Unknown models yield zero cost
// and a nil Pricing so callers can distinguish "free" from "unpriced".
func (c *Calculator) Cost(inputTokens, outputTokens int, model, provider string) CostResult {
	result := CostResult{Currency: "USD"}
	entry := c.Lookup(model, provider)
	if entry == nil {
		return result
	}
	result.Pricing = entry
	result.Cost = tokenCost(inputTokens, entry.InputPerM) + tokenCost(outputTokens, entry.OutputPerM)
	return result
}

// EstimatedCost is Cost with a fallback: unknown models are priced at
// conservative default rates and the result is flagged Estimated.
func (c *Calculator) EstimatedCost(inputTokens, outputTokens int, model, provider string) CostResult {
	result := c.Cost(inputTokens, outputTokens, model, provider)
	if result.Pricing != nil {
		return result
	}
	result.Estimated = true
	result.Cost = tokenCost(inputTokens, fallbackInputPerM) + tokenCost(outputTokens, fallbackOutputPerM)
	return result
}

// Models lists the catalog's model names sorted for stable output.
func (c *Calculator) Models() []string {
	names := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		names = append(names, entry.Model)
	}
	sort.Strings(names)
	return names
}

func tokenCost(tokens int, perMillion float64) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1_000_000 * perMillion
}

// normalizeModel lowercases and strips separators so vendor spellings
// like "GPT-4 Turbo", "gpt_4_turbo" and "gpt-4-turbo" collide.
func normalizeModel(model string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(model)) {
		switch r {
		case '-', '_', '/', ' ', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatCost renders a USD amount with precision shrinking as the value
// grows. Zero renders as "N/A" because an unpriced call has no cost.
func FormatCost(cost float64) string {
	switch {
	case cost == 0:
		return "N/A"
	case cost >= 1:
		return fmt.Sprintf("$%.2f", cost)
	case cost >= 0.10:
		return fmt.Sprintf("$%.3f", cost)
	case cost >= 0.01:
		return fmt.Sprintf("$%.4f", cost)
	default:
		return fmt.Sprintf("$%.6f", cost)
	}
}
