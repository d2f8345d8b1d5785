// Package genai turns the flat tag bag of one span into a typed record of
// its LLM-relevant attributes, following the OpenTelemetry GenAI semantic
// conventions with fallbacks for legacy key spellings.
package genai

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/security"
)

// LLMSpanInfo is the typed extraction result for one span. Optional
// numeric fields are pointers so "absent" and "zero" stay distinct.
type LLMSpanInfo struct {
	IsLLMSpan bool `json:"is_llm_span"`

	Provider      string `json:"provider,omitempty"`
	OperationName string `json:"operation_name,omitempty"`
	RequestModel  string `json:"request_model,omitempty"`
	ResponseModel string `json:"response_model,omitempty"`

	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	ResponseID     string   `json:"response_id,omitempty"`
	FinishReasons  []string `json:"finish_reasons,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`

	InputMessages  []openai.ChatCompletionMessage `json:"input_messages,omitempty"`
	OutputMessages []openai.ChatCompletionMessage `json:"output_messages,omitempty"`

	ToolName      string `json:"tool_name,omitempty"`
	ToolType      string `json:"tool_type,omitempty"`
	ToolCallID    string `json:"tool_call_id,omitempty"`
	ToolArguments string `json:"tool_arguments,omitempty"`
	ToolResult    string `json:"tool_result,omitempty"`

	AgentName string `json:"agent_name,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`

	QualityChecks  []quality.Check  `json:"quality_checks,omitempty"`
	SecurityChecks []security.Check `json:"security_checks,omitempty"`
}

// IsLLMSpan reports whether the tag set carries at least one LLM
// indicator key. This is the single gating predicate used everywhere.
func IsLLMSpan(tags map[string]string) bool {
	for _, key := range llmIndicatorKeys {
		if v, ok := tags[key]; ok && v != "" {
			return true
		}
	}
	return false
}

// ExtractLLMSpanInfo derives a typed record from one span's tags. It is a
// pure function: identical tags always yield an identical record, and
// malformed values degrade to absent fields rather than errors.
func ExtractLLMSpanInfo(tags map[string]string) LLMSpanInfo {
	info := LLMSpanInfo{IsLLMSpan: IsLLMSpan(tags)}
	if !info.IsLLMSpan {
		return info
	}

	info.Provider, _ = resolve(tags, providerKeys)
	info.OperationName, _ = resolve(tags, operationNameKeys)
	info.RequestModel, _ = resolve(tags, requestModelKeys)
	info.ResponseModel, _ = resolve(tags, responseModelKeys)
	info.ResponseID, _ = resolve(tags, responseIDKeys)
	info.ConversationID, _ = resolve(tags, conversationIDKeys)

	if raw, ok := resolve(tags, finishReasonsKeys); ok {
		info.FinishReasons = splitListTag(raw)
	}

	if raw, ok := resolve(tags, inputTokenKeys); ok {
		if v, ok := parseIntTag(raw); ok {
			info.InputTokens = &v
		}
	}
	if raw, ok := resolve(tags, outputTokenKeys); ok {
		if v, ok := parseIntTag(raw); ok {
			info.OutputTokens = &v
		}
	}
	info.TotalTokens = resolveTotalTokens(tags, info.InputTokens, info.OutputTokens)

	if raw, ok := resolve(tags, temperatureKeys); ok {
		if v, ok := parseFloatTag(raw); ok {
			info.Temperature = &v
		}
	}
	if raw, ok := resolve(tags, topPKeys); ok {
		if v, ok := parseFloatTag(raw); ok {
			info.TopP = &v
		}
	}
	if raw, ok := resolve(tags, maxTokensKeys); ok {
		if v, ok := parseIntTag(raw); ok {
			info.MaxTokens = &v
		}
	}

	if raw, ok := resolve(tags, inputMessagesKeys); ok {
		info.InputMessages = decodeMessages(raw)
	}
	if raw, ok := resolve(tags, outputMessagesKeys); ok {
		info.OutputMessages = decodeMessages(raw)
	}

	info.ToolName, _ = resolve(tags, toolNameKeys)
	info.ToolType, _ = resolve(tags, toolTypeKeys)
	info.ToolCallID, _ = resolve(tags, toolCallIDKeys)
	info.ToolArguments, _ = resolve(tags, toolArgumentsKeys)
	info.ToolResult, _ = resolve(tags, toolResultKeys)

	info.AgentName, _ = resolve(tags, agentNameKeys)
	info.AgentID, _ = resolve(tags, agentIDKeys)

	info.QualityChecks = extractQualityChecks(tags)
	info.SecurityChecks = extractSecurityChecks(tags)

	return info
}

// resolveTotalTokens keeps the invariant total = input + output whenever
// both sides are present, falling back to an explicit total tag.
func resolveTotalTokens(tags map[string]string, input, output *int) *int {
	if input != nil && output != nil {
		total := *input + *output
		return &total
	}
	if raw, ok := resolve(tags, totalTokenKeys); ok {
		if v, ok := parseIntTag(raw); ok {
			return &v
		}
	}
	return nil
}
