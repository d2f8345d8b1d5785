package genai

import (
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// decodeMessages parses a message-list tag value. GenAI instrumentation
// emits OpenAI-shaped message JSON; anything that fails to decode is kept
// as a single user-role message so garbage input still yields a usable
// record.
func decodeMessages(raw string) []openai.ChatCompletionMessage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var messages []openai.ChatCompletionMessage
		if err := json.Unmarshal([]byte(trimmed), &messages); err == nil {
			return messages
		}
	}
	if strings.HasPrefix(trimmed, "{") {
		var message openai.ChatCompletionMessage
		if err := json.Unmarshal([]byte(trimmed), &message); err == nil && (message.Role != "" || message.Content != "") {
			return []openai.ChatCompletionMessage{message}
		}
	}

	return []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: raw,
	}}
}

// MessageText concatenates the content of messages with a given role;
// an empty role selects every message.
func MessageText(messages []openai.ChatCompletionMessage, role string) string {
	var parts []string
	for _, m := range messages {
		if role != "" && m.Role != role {
			continue
		}
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}
