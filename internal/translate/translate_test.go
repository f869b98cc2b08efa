package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSystemPrompt(t *testing.T) {
	tests := []struct {
		name   string
		system SystemPrompt
		want   int
	}{
		{name: "no system", system: nil, want: 0},
		{name: "single entry", system: SystemPrompt{"be brief"}, want: 1},
		{name: "multiple entries", system: SystemPrompt{"be brief", "use metric units"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Translate(nil, tt.system)
			require.Len(t, out, tt.want)

			for i, msg := range out {
				assert.Equal(t, RoleSystem, msg.Role)

				parts := msg.Content.Parts()
				require.Len(t, parts, 1)
				assert.Equal(t, tt.system[i], parts[0].Text)
				require.NotNil(t, parts[0].CacheControl)
				assert.Equal(t, "ephemeral", parts[0].CacheControl.Type)
			}
		})
	}
}

func TestTranslateSystemPromptUnmarshal(t *testing.T) {
	var bare SystemPrompt
	require.NoError(t, json.Unmarshal([]byte(`"just text"`), &bare))
	assert.Equal(t, SystemPrompt{"just text"}, bare)

	var list SystemPrompt
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`), &list))
	assert.Equal(t, SystemPrompt{"a", "b"}, list)
}

func TestTranslatePlainStringContent(t *testing.T) {
	out := Translate([]Message{
		{Role: RoleUser, Content: TextContent("hello")},
		{Role: RoleAssistant, Content: TextContent("hi there")},
	}, nil)

	require.Len(t, out, 2)

	text, ok := out[0].Content.Text()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, RoleUser, out[0].Role)

	text, ok = out[1].Content.Text()
	require.True(t, ok)
	assert.Equal(t, "hi there", text)
}

func TestTranslateAssistantBlocks(t *testing.T) {
	out := Translate([]Message{
		{
			Role: RoleAssistant,
			Content: BlockContent(
				ContentBlock{Type: BlockTypeText, Text: "Let me check."},
				ContentBlock{
					Type:  BlockTypeToolUse,
					ID:    "toolu_01",
					Name:  "get_weather",
					Input: json.RawMessage(`{"city":"Oslo"}`),
				},
				ContentBlock{Type: BlockTypeText, Text: "One moment."},
			),
		},
	}, nil)

	require.Len(t, out, 1)

	text, ok := out[0].Content.Text()
	require.True(t, ok)
	assert.Equal(t, "Let me check.\nOne moment.", text)

	require.Len(t, out[0].ToolCalls, 1)
	call := out[0].ToolCalls[0]
	assert.Equal(t, "toolu_01", call.ID)
	assert.Equal(t, "function", call.Type)
	assert.Equal(t, "get_weather", call.Function.Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, call.Function.Arguments)
}

func TestTranslateAssistantToolCallsOnly(t *testing.T) {
	out := Translate([]Message{
		{
			Role: RoleAssistant,
			Content: BlockContent(ContentBlock{
				Type:  BlockTypeToolUse,
				ID:    "toolu_02",
				Name:  "search",
				Input: json.RawMessage(`{}`),
			}),
		},
	}, nil)

	require.Len(t, out, 1)
	assert.True(t, out[0].Content.IsEmpty())
	require.Len(t, out[0].ToolCalls, 1)

	// Null content must encode as JSON null, not an empty string.
	encoded, err := json.Marshal(out[0])
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"content":null`)
}

func TestTranslateAssistantEmptyBlocksOmitted(t *testing.T) {
	out := Translate([]Message{
		{Role: RoleAssistant, Content: BlockContent(ContentBlock{Type: BlockTypeText, Text: "   "})},
	}, nil)

	assert.Empty(t, out)
}

func TestTranslateUserToolResults(t *testing.T) {
	out := Translate([]Message{
		{
			Role: RoleUser,
			Content: BlockContent(
				ContentBlock{Type: BlockTypeText, Text: "results below"},
				ContentBlock{Type: BlockTypeToolResult, ToolUseID: "toolu_01", Content: json.RawMessage(`"sunny"`)},
				ContentBlock{Type: BlockTypeToolResult, ToolUseID: "toolu_02", Content: json.RawMessage(`{"ok":true}`)},
			),
		},
	}, nil)

	require.Len(t, out, 3)

	assert.Equal(t, RoleUser, out[0].Role)
	text, _ := out[0].Content.Text()
	assert.Equal(t, "results below", text)

	assert.Equal(t, RoleTool, out[1].Role)
	assert.Equal(t, "toolu_01", out[1].ToolCallID)
	text, _ = out[1].Content.Text()
	assert.Equal(t, "sunny", text)

	assert.Equal(t, RoleTool, out[2].Role)
	assert.Equal(t, "toolu_02", out[2].ToolCallID)
	text, _ = out[2].Content.Text()
	assert.Equal(t, `{"ok":true}`, text)
}

func TestTranslateToolResultMissingContent(t *testing.T) {
	out := Translate([]Message{
		{
			Role:    RoleUser,
			Content: BlockContent(ContentBlock{Type: BlockTypeToolResult, ToolUseID: "toolu_03"}),
		},
	}, nil)

	require.Len(t, out, 1)
	text, ok := out[0].Content.Text()
	require.True(t, ok)
	assert.Empty(t, text)
}

func TestTranslateUnsupportedContentShapeDropped(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &m))

	out := Translate([]Message{m, {Role: RoleUser, Content: TextContent("kept")}}, nil)

	require.Len(t, out, 1)
	text, _ := out[0].Content.Text()
	assert.Equal(t, "kept", text)
}

func TestTranslateTools(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`)

	out := TranslateTools([]Tool{
		{Name: "get_weather", Description: "Current weather", InputSchema: schema},
		{Name: ReservedToolName, Description: "never forwarded"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "function", out[0].Type)
	assert.Equal(t, "get_weather", out[0].Function.Name)
	assert.Equal(t, "Current weather", out[0].Function.Description)
	assert.JSONEq(t, string(schema), string(out[0].Function.Parameters))
}

func TestTranslateToolsAllReserved(t *testing.T) {
	assert.Nil(t, TranslateTools([]Tool{{Name: ReservedToolName}}))
	assert.Nil(t, TranslateTools(nil))
}

func TestRoundTripToolConversation(t *testing.T) {
	body := []byte(`{
		"model": "claude-sonnet-4",
		"system": "be helpful",
		"messages": [
			{"role": "user", "content": "weather in Oslo?"},
			{"role": "assistant", "content": [
				{"type": "tool_use", "id": "toolu_a", "name": "get_weather", "input": {"city": "Oslo"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_a", "content": "12C, clear"}
			]}
		]
	}`)

	var req Request
	require.NoError(t, json.Unmarshal(body, &req))

	msgs := PairToolCalls(Translate(req.Messages, req.System))
	require.Len(t, msgs, 4)

	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, RoleTool, msgs[3].Role)
	assert.Equal(t, "toolu_a", msgs[3].ToolCallID)
}
