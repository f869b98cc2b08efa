package translate

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// PairToolCalls rewrites the translated list so that every tool_call and
// tool message reference is mutually consistent: each surviving tool_call
// has a matching tool message in the contiguous run that follows its
// assistant message, and each surviving tool message has an owning
// tool_call on the nearest preceding non-tool message. Unmatched entries
// are dropped. The pass is idempotent.
func PairToolCalls(msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))

	for i, m := range msgs {
		switch {
		case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
			if kept, ok := pairAssistant(m, toolRunIDs(msgs, i+1)); ok {
				out = append(out, kept)
			}
		case m.Role == RoleTool:
			if hasOwner(msgs, i) {
				out = append(out, m)
			} else {
				log.Warn().Str("tool_call_id", m.ToolCallID).Msg("dropping orphaned tool result")
			}
		default:
			out = append(out, m)
		}
	}

	return out
}

// toolRunIDs collects the tool_call_ids of the maximal contiguous run of
// tool messages starting at index i.
func toolRunIDs(msgs []ChatMessage, i int) map[string]struct{} {
	ids := make(map[string]struct{})

	for ; i < len(msgs) && msgs[i].Role == RoleTool; i++ {
		ids[msgs[i].ToolCallID] = struct{}{}
	}

	return ids
}

func pairAssistant(m ChatMessage, followers map[string]struct{}) (ChatMessage, bool) {
	kept, dropped := lo.FilterReject(m.ToolCalls, func(tc ToolCall, _ int) bool {
		_, ok := followers[tc.ID]
		return ok
	})

	for _, tc := range dropped {
		log.Warn().Str("tool_call_id", tc.ID).Str("tool", tc.Function.Name).
			Msg("dropping tool call without a tool result")
	}

	if len(kept) == 0 {
		kept = nil
	}

	m.ToolCalls = kept

	if m.Content.IsEmpty() && len(m.ToolCalls) == 0 {
		log.Warn().Msg("dropping assistant message left with no content and no tool calls")
		return ChatMessage{}, false
	}

	return m, true
}

// hasOwner reports whether the tool message at index i is claimed by an
// assistant tool_call. The scan walks backward over tool messages only
// and checks the first non-tool message it reaches; an assistant without
// tool_calls there means no match, even if an earlier assistant has one.
func hasOwner(msgs []ChatMessage, i int) bool {
	id := msgs[i].ToolCallID

	for j := i - 1; j >= 0; j-- {
		if msgs[j].Role == RoleTool {
			continue
		}

		if msgs[j].Role != RoleAssistant {
			return false
		}

		return lo.ContainsBy(msgs[j].ToolCalls, func(tc ToolCall) bool {
			return tc.ID == id
		})
	}

	return false
}
