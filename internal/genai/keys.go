package genai

// Canonical OpenTelemetry GenAI semantic-convention keys, with the legacy
// spellings still emitted by older instrumentation. Each field resolves
// through an ordered candidate list: first present, non-empty value wins.
// Adding an alias is a one-line table edit.
const (
	KeyOperationName      = "gen_ai.operation.name"
	KeySystem             = "gen_ai.system"
	KeyProviderName       = "gen_ai.provider.name"
	KeyRequestModel       = "gen_ai.request.model"
	KeyResponseModel      = "gen_ai.response.model"
	KeyRequestTemperature = "gen_ai.request.temperature"
	KeyRequestTopP        = "gen_ai.request.top_p"
	KeyRequestMaxTokens   = "gen_ai.request.max_tokens"
	KeyUsageInputTokens   = "gen_ai.usage.input_tokens"
	KeyUsageOutputTokens  = "gen_ai.usage.output_tokens"
	KeyUsageTotalTokens   = "gen_ai.usage.total_tokens"
	KeyResponseID         = "gen_ai.response.id"
	KeyFinishReasons      = "gen_ai.response.finish_reasons"
	KeyConversationID     = "gen_ai.conversation.id"
	KeyInputMessages      = "gen_ai.input.messages"
	KeyOutputMessages     = "gen_ai.output.messages"
	KeyToolName           = "gen_ai.tool.name"
	KeyToolType           = "gen_ai.tool.type"
	KeyToolCallID         = "gen_ai.tool.call.id"
	KeyToolArguments      = "gen_ai.tool.arguments"
	KeyToolResult         = "gen_ai.tool.result"
	KeyAgentName          = "gen_ai.agent.name"
	KeyAgentID            = "gen_ai.agent.id"
)

// llmIndicatorKeys gate IsLLMSpan: a span is LLM-relevant iff at least
// one of these keys is present.
var llmIndicatorKeys = []string{
	KeyOperationName,
	KeyRequestModel,
	KeyProviderName,
	KeyUsageInputTokens,
	"llm.model",
	"ai.model",
	KeySystem,
}

var (
	providerKeys = []string{KeyProviderName, KeySystem, "llm.vendor", "llm.provider", "ai.provider"}

	operationNameKeys = []string{KeyOperationName, "llm.request.type", "ai.operation"}

	requestModelKeys  = []string{KeyRequestModel, "llm.model", "llm.request.model", "ai.model"}
	responseModelKeys = []string{KeyResponseModel, "llm.response.model"}

	temperatureKeys = []string{KeyRequestTemperature, "llm.temperature"}
	topPKeys        = []string{KeyRequestTopP, "llm.top_p"}
	maxTokensKeys   = []string{KeyRequestMaxTokens, "llm.max_tokens"}

	inputTokenKeys  = []string{KeyUsageInputTokens, "gen_ai.usage.prompt_tokens", "llm.usage.prompt_tokens", "llm.tokens.prompt", "ai.tokens.input"}
	outputTokenKeys = []string{KeyUsageOutputTokens, "gen_ai.usage.completion_tokens", "llm.usage.completion_tokens", "llm.tokens.completion", "ai.tokens.output"}
	totalTokenKeys  = []string{KeyUsageTotalTokens, "llm.usage.total_tokens", "llm.tokens.total", "ai.tokens.total"}

	responseIDKeys     = []string{KeyResponseID, "llm.response.id"}
	finishReasonsKeys  = []string{KeyFinishReasons, "gen_ai.response.finish_reason", "llm.response.finish_reason"}
	conversationIDKeys = []string{KeyConversationID, "gen_ai.thread.id", "llm.conversation_id", "session.id"}

	inputMessagesKeys  = []string{KeyInputMessages, "gen_ai.prompt", "llm.prompts", "llm.input_messages"}
	outputMessagesKeys = []string{KeyOutputMessages, "gen_ai.completion", "llm.completions", "llm.output_messages"}

	toolNameKeys      = []string{KeyToolName, "llm.tool.name", "tool.name"}
	toolTypeKeys      = []string{KeyToolType, "tool.type"}
	toolCallIDKeys    = []string{KeyToolCallID, "llm.tool.call_id", "tool.call_id"}
	toolArgumentsKeys = []string{KeyToolArguments, "tool.arguments", "tool.input"}
	toolResultKeys    = []string{KeyToolResult, "tool.result", "tool.output"}

	agentNameKeys = []string{KeyAgentName, "agent.name", "llm.agent.name"}
	agentIDKeys   = []string{KeyAgentID, "agent.id"}
)

// resolve returns the first present, non-empty tag value among candidates.
func resolve(tags map[string]string, candidates []string) (string, bool) {
	for _, key := range candidates {
		if v, ok := tags[key]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
