// Package analysis folds per-span extraction results into trace-level
// aggregates.
package analysis

import (
	"sort"
	"strings"

	"github.com/agentlens/agentlens/internal/genai"
	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/span"
)

// TraceLLMSummary aggregates the LLM profile of one trace. It is derived
// on demand from the span list and never maintained incrementally.
type TraceLLMSummary struct {
	HasLLMSpans       bool     `json:"has_llm_spans"`
	LLMSpanCount      int      `json:"llm_span_count"`
	TotalInputTokens  int      `json:"total_input_tokens"`
	TotalOutputTokens int      `json:"total_output_tokens"`
	TotalTokens       int      `json:"total_tokens"`
	UniqueModels      []string `json:"unique_models,omitempty"`
	UniqueProviders   []string `json:"unique_providers,omitempty"`
	ToolCallCount     int      `json:"tool_call_count"`
	AgentHandoffCount int      `json:"agent_handoff_count"`
	QualityIssues     int      `json:"quality_issues"`
	SecurityIssues    int      `json:"security_issues"`
}

// CalculateTraceSummary folds extraction output across all spans of one
// trace. The fold is commutative: span order does not affect the result.
func CalculateTraceSummary(spans []span.Span) TraceLLMSummary {
	summary := TraceLLMSummary{}
	models := make(map[string]bool)
	providers := make(map[string]bool)

	for _, sp := range spans {
		info := genai.ExtractLLMSpanInfo(sp.Tags)
		if !info.IsLLMSpan {
			continue
		}

		summary.HasLLMSpans = true
		summary.LLMSpanCount++

		if info.InputTokens != nil {
			summary.TotalInputTokens += *info.InputTokens
		}
		if info.OutputTokens != nil {
			summary.TotalOutputTokens += *info.OutputTokens
		}
		if info.TotalTokens != nil {
			summary.TotalTokens += *info.TotalTokens
		}

		if model := firstNonEmpty(info.ResponseModel, info.RequestModel); model != "" {
			models[model] = true
		}
		if info.Provider != "" {
			providers[info.Provider] = true
		}

		if isToolCall(info) {
			summary.ToolCallCount++
		}
		if isAgentHandoff(info) {
			summary.AgentHandoffCount++
		}

		for _, check := range info.QualityChecks {
			if check.Severity == quality.SeverityWarning || check.Severity == quality.SeverityFail {
				summary.QualityIssues++
			}
		}
		for _, check := range info.SecurityChecks {
			if check.Detected {
				summary.SecurityIssues++
			}
		}
	}

	summary.UniqueModels = sortedKeys(models)
	summary.UniqueProviders = sortedKeys(providers)
	return summary
}

func isToolCall(info genai.LLMSpanInfo) bool {
	return info.ToolName != "" || strings.EqualFold(info.OperationName, "tool")
}

func isAgentHandoff(info genai.LLMSpanInfo) bool {
	return info.AgentName != "" || strings.EqualFold(info.OperationName, "agent_handoff")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
