package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotateCacheEmpty(t *testing.T) {
	assert.Empty(t, AnnotateCache(nil))
	assert.Empty(t, AnnotateCache([]ChatMessage{}))
}

func TestAnnotateCacheRewrapsStringContent(t *testing.T) {
	out := AnnotateCache([]ChatMessage{
		{Role: RoleUser, Content: StringContent("first")},
		{Role: RoleUser, Content: StringContent("last")},
	})

	require.Len(t, out, 2)

	text, ok := out[0].Content.Text()
	require.True(t, ok)
	assert.Equal(t, "first", text)

	parts := out[1].Content.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, "last", parts[0].Text)
	require.NotNil(t, parts[0].CacheControl)
	assert.Equal(t, "ephemeral", parts[0].CacheControl.Type)
}

func TestAnnotateCacheMarksLastPartOnly(t *testing.T) {
	out := AnnotateCache([]ChatMessage{
		{Role: RoleUser, Content: PartsContent(
			TextPart{Type: ContentTypeText, Text: "a"},
			TextPart{Type: ContentTypeText, Text: "b"},
		)},
	})

	parts := out[0].Content.Parts()
	require.Len(t, parts, 2)
	assert.Nil(t, parts[0].CacheControl)
	require.NotNil(t, parts[1].CacheControl)
}

func TestAnnotateCacheSkipsNonTextFinalPart(t *testing.T) {
	out := AnnotateCache([]ChatMessage{
		{Role: RoleUser, Content: PartsContent(
			TextPart{Type: ContentTypeText, Text: "a"},
			TextPart{Type: "image", Text: ""},
		)},
	})

	parts := out[0].Content.Parts()
	require.Len(t, parts, 2)
	assert.Nil(t, parts[0].CacheControl)
	assert.Nil(t, parts[1].CacheControl)
}

func TestAnnotateCacheNullContentUntouched(t *testing.T) {
	in := []ChatMessage{{Role: RoleAssistant, ToolCalls: []ToolCall{toolCall("a")}}}

	out := AnnotateCache(in)
	require.Len(t, out, 1)
	assert.True(t, out[0].Content.IsEmpty())
	assert.Nil(t, out[0].Content.Parts())
}

func TestAnnotateCacheInputUntouched(t *testing.T) {
	in := []ChatMessage{{Role: RoleUser, Content: StringContent("payload")}}

	_ = AnnotateCache(in)

	text, ok := in[0].Content.Text()
	require.True(t, ok)
	assert.Equal(t, "payload", text)
}
