// Package translate converts between the Anthropic message format used by
// inbound callers (typed content blocks plus a separate system field) and
// the flat chat-completion format spoken by OpenAI-compatible providers.
package translate

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// Translate converts the inbound message list and system prompt into the
// flat provider message list. System entries are prepended, one target
// system message per entry, each carrying an ephemeral cache marker on
// its single text block.
func Translate(messages []Message, system SystemPrompt) []ChatMessage {
	out := systemMessages(system)

	for _, m := range messages {
		out = append(out, translateMessage(m)...)
	}

	return out
}

func systemMessages(system SystemPrompt) []ChatMessage {
	out := make([]ChatMessage, 0, len(system))

	for _, text := range system {
		out = append(out, ChatMessage{
			Role: RoleSystem,
			Content: PartsContent(TextPart{
				Type:         ContentTypeText,
				Text:         text,
				CacheControl: ephemeral(),
			}),
		})
	}

	return out
}

func translateMessage(m Message) []ChatMessage {
	switch m.Content.kind {
	case contentText:
		// Plain-string content short-circuits regardless of role.
		return []ChatMessage{{Role: m.Role, Content: StringContent(m.Content.text)}}
	case contentBlocks:
		switch m.Role {
		case RoleAssistant:
			return translateAssistant(m.Content.blocks)
		case RoleUser:
			return translateUser(m.Content.blocks)
		default:
			return translateFlattened(m.Role, m.Content.blocks)
		}
	default:
		log.Debug().Str("role", m.Role).Msg("dropping message with unsupported content shape")
		return nil
	}
}

// translateAssistant folds text blocks into one accumulated string and
// tool_use blocks into tool_calls. Emits at most one message; nothing if
// both come out empty.
func translateAssistant(blocks []ContentBlock) []ChatMessage {
	var (
		text  strings.Builder
		calls []ToolCall
	)

	for _, b := range blocks {
		switch b.Type {
		case BlockTypeText:
			text.WriteString(b.Text)
			text.WriteString("\n")
		case BlockTypeToolUse:
			calls = append(calls, ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      b.Name,
					Arguments: string(b.Input),
				},
			})
		}
	}

	msg := ChatMessage{Role: RoleAssistant}

	if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
		msg.Content = StringContent(trimmed)
	}

	if len(calls) > 0 {
		msg.ToolCalls = calls
	}

	if msg.Content.IsEmpty() && len(msg.ToolCalls) == 0 {
		return nil
	}

	return []ChatMessage{msg}
}

// translateUser emits the accumulated text as a single user message
// (omitted when empty) followed by one tool message per tool_result
// block, in original order.
func translateUser(blocks []ContentBlock) []ChatMessage {
	var (
		text strings.Builder
		out  []ChatMessage
	)

	for _, b := range blocks {
		switch b.Type {
		case BlockTypeText:
			text.WriteString(b.Text)
			text.WriteString("\n")
		case BlockTypeToolResult:
			out = append(out, ChatMessage{
				Role:       RoleTool,
				ToolCallID: b.ToolUseID,
				Content:    StringContent(jsonText(b.Content)),
			})
		}
	}

	if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
		out = append([]ChatMessage{{Role: RoleUser, Content: StringContent(trimmed)}}, out...)
	}

	return out
}

// translateFlattened concatenates every block into one string, JSON
// encoding the non-text ones, for roles with no richer target shape.
func translateFlattened(role string, blocks []ContentBlock) []ChatMessage {
	var text strings.Builder

	for _, b := range blocks {
		if b.Type == BlockTypeText {
			text.WriteString(b.Text)
		} else if encoded, err := json.Marshal(b); err == nil {
			text.Write(encoded)
		}

		text.WriteString("\n")
	}

	trimmed := strings.TrimSpace(text.String())
	if trimmed == "" {
		return nil
	}

	return []ChatMessage{{Role: role, Content: StringContent(trimmed)}}
}
