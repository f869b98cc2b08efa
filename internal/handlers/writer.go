package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// EventStream is a lazy, forward-only sequence of parsed provider
// events. Next returns io.EOF after the final event. Close releases the
// underlying source and is safe to call more than once.
type EventStream interface {
	Next() (map[string]any, error)
	Close() error
}

// Writer renders provider responses in the Anthropic wire format the
// caller expects. It is called exactly once per request, whether the
// request succeeded or not.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

var stopReasonMap = map[string]string{
	"stop":           "end_turn",
	"length":         "max_tokens",
	"tool_calls":     "tool_use",
	"function_call":  "tool_use",
	"content_filter": "stop_sequence",
}

func mapStopReason(reason string) string {
	if mapped, ok := stopReasonMap[reason]; ok {
		return mapped
	}

	return "end_turn"
}

// anthropicToolID maps provider tool-call ids into the toolu_ namespace.
func anthropicToolID(id string) string {
	if strings.HasPrefix(id, "toolu_") {
		return id
	}

	if strings.HasPrefix(id, "call_") {
		return "toolu_" + strings.TrimPrefix(id, "call_")
	}

	return "toolu_" + id
}

// WriteStream consumes the event sequence and emits Anthropic SSE events
// in arrival order, flushing after each. The stream is closed on every
// exit path.
func (wr *Writer) WriteStream(w http.ResponseWriter, events EventStream, model string) {
	defer func() {
		_ = events.Close()
	}()

	flusher, _ := w.(http.Flusher)
	state := &streamState{model: model, blocks: make(map[int]*blockState)}

	for {
		chunk, err := events.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error().Err(err).Msg("upstream stream ended with error")
			}

			return
		}

		if out := state.consume(chunk); len(out) > 0 {
			if _, err := w.Write(out); err != nil {
				log.Debug().Err(err).Msg("caller went away mid-stream")
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// streamState tracks the chunk-to-event conversion across one response.
type streamState struct {
	messageID        string
	model            string
	messageStartSent bool
	blocks           map[int]*blockState
}

type blockState struct {
	kind      string
	started   bool
	stopped   bool
	toolID    string
	toolIndex int
	toolName  string
	args      string
}

func (s *streamState) consume(chunk map[string]any) []byte {
	if id, ok := chunk["id"].(string); ok && s.messageID == "" {
		s.messageID = id
	}

	if model, ok := chunk["model"].(string); ok && model != "" {
		s.model = model
	}

	choices, ok := chunk["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}

	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil
	}

	var out []byte

	if !s.messageStartSent {
		out = append(out, sseEvent("message_start", s.messageStart(chunk))...)
		s.messageStartSent = true
	}

	if delta, ok := choice["delta"].(map[string]any); ok {
		if toolCalls, ok := delta["tool_calls"].([]any); ok {
			out = append(out, s.toolCallEvents(toolCalls)...)
		} else if content, ok := delta["content"].(string); ok && content != "" {
			out = append(out, s.textEvents(content)...)
		}
	}

	if reason, ok := choice["finish_reason"].(string); ok && reason != "" {
		out = append(out, s.finishEvents(reason, chunk)...)
	}

	return out
}

func (s *streamState) messageStart(chunk map[string]any) map[string]any {
	usage := map[string]any{
		"input_tokens":  0,
		"output_tokens": 1,
	}

	if u, ok := chunk["usage"].(map[string]any); ok {
		if prompt, ok := u["prompt_tokens"]; ok {
			usage["input_tokens"] = prompt
		}

		if details, ok := u["prompt_tokens_details"].(map[string]any); ok {
			if cached, ok := details["cached_tokens"]; ok {
				usage["cache_read_input_tokens"] = cached
			}
		}
	}

	return map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":            s.messageID,
			"type":          "message",
			"role":          "assistant",
			"model":         s.model,
			"content":       []any{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         usage,
		},
	}
}

func (s *streamState) textEvents(content string) []byte {
	block, ok := s.blocks[0]
	if !ok {
		block = &blockState{kind: "text"}
		s.blocks[0] = block
	}

	var out []byte

	if !block.started {
		out = append(out, sseEvent("content_block_start", map[string]any{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]any{"type": "text", "text": ""},
		})...)
		block.started = true
	}

	out = append(out, sseEvent("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{"type": "text_delta", "text": content},
	})...)

	return out
}

func (s *streamState) toolCallEvents(toolCalls []any) []byte {
	var out []byte

	for _, raw := range toolCalls {
		call, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		out = append(out, s.singleToolCall(call)...)
	}

	return out
}

func (s *streamState) singleToolCall(call map[string]any) []byte {
	id, _ := call["id"].(string)
	toolIndex := -1

	if idx, ok := call["index"].(float64); ok {
		toolIndex = int(idx)
	}

	var name, args string
	if fn, ok := call["function"].(map[string]any); ok {
		name, _ = fn["name"].(string)
		args, _ = fn["arguments"].(string)
	}

	index := s.findToolBlock(id, toolIndex)
	if index < 0 {
		if id == "" {
			return nil
		}

		index = len(s.blocks)
		s.blocks[index] = &blockState{kind: "tool_use", toolID: id, toolIndex: toolIndex}
	}

	block := s.blocks[index]
	if name != "" {
		block.toolName = name
	}

	var out []byte

	if !block.started && block.toolID != "" && block.toolName != "" {
		out = append(out, sseEvent("content_block_start", map[string]any{
			"type":  "content_block_start",
			"index": index,
			"content_block": map[string]any{
				"type":  "tool_use",
				"id":    anthropicToolID(block.toolID),
				"name":  block.toolName,
				"input": map[string]any{},
			},
		})...)
		block.started = true
	}

	if args != "" && args != block.args {
		// Providers usually resend the full accumulated arguments; emit
		// only what is new.
		delta := args
		if strings.HasPrefix(args, block.args) {
			delta = args[len(block.args):]
		}

		block.args = args

		if delta != "" {
			out = append(out, sseEvent("content_block_delta", map[string]any{
				"type":  "content_block_delta",
				"index": index,
				"delta": map[string]any{"type": "input_json_delta", "partial_json": delta},
			})...)
		}
	}

	return out
}

func (s *streamState) findToolBlock(id string, toolIndex int) int {
	for index, block := range s.blocks {
		if block.kind != "tool_use" {
			continue
		}

		if toolIndex >= 0 && block.toolIndex == toolIndex {
			return index
		}

		if id != "" && block.toolID == id {
			return index
		}
	}

	return -1
}

func (s *streamState) finishEvents(reason string, chunk map[string]any) []byte {
	var out []byte

	for index, block := range s.blocks {
		if block.started && !block.stopped {
			out = append(out, sseEvent("content_block_stop", map[string]any{
				"type":  "content_block_stop",
				"index": index,
			})...)
			block.stopped = true
		}
	}

	messageDelta := map[string]any{
		"type": "message_delta",
		"delta": map[string]any{
			"stop_reason":   mapStopReason(reason),
			"stop_sequence": nil,
		},
	}

	if u, ok := chunk["usage"].(map[string]any); ok {
		if usage := mapUsage(u); len(usage) > 0 {
			messageDelta["usage"] = usage
		}
	}

	out = append(out, sseEvent("message_delta", messageDelta)...)
	out = append(out, sseEvent("message_stop", map[string]any{"type": "message_stop"})...)

	return out
}

func mapUsage(u map[string]any) map[string]any {
	usage := make(map[string]any)

	if prompt, ok := u["prompt_tokens"]; ok {
		usage["input_tokens"] = prompt
	}

	if completion, ok := u["completion_tokens"]; ok {
		usage["output_tokens"] = completion
	}

	if details, ok := u["prompt_tokens_details"].(map[string]any); ok {
		if cached, ok := details["cached_tokens"]; ok {
			usage["cache_read_input_tokens"] = cached
		}
	}

	return usage
}

func sseEvent(eventType string, data map[string]any) []byte {
	encoded, err := json.Marshal(data)
	if err != nil {
		return []byte("event: error\ndata: {\"error\":\"failed to marshal event\"}\n\n")
	}

	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, encoded))
}
