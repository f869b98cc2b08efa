package translate

import (
	"encoding/json"
)

// Role constants shared across both wire formats.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const ContentTypeText = "text"

// Request is the inbound Anthropic-format request body.
type Request struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Messages    []Message       `json:"messages"`
	System      SystemPrompt    `json:"system,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Tools       []Tool          `json:"tools,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// Tool is an Anthropic-format tool declaration.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Message is one inbound message. Content is either a plain string or an
// ordered list of typed content blocks.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

type contentKind int

const (
	contentNone contentKind = iota
	contentText
	contentBlocks
)

// MessageContent holds the two wire shapes of a message body. A shape the
// wire does not support (number, object, absent) decodes to the none kind
// and is later dropped by the translator.
type MessageContent struct {
	kind   contentKind
	text   string
	blocks []ContentBlock
}

// TextContent returns a plain-string message content.
func TextContent(s string) MessageContent {
	return MessageContent{kind: contentText, text: s}
}

// BlockContent returns an array-of-blocks message content.
func BlockContent(blocks ...ContentBlock) MessageContent {
	return MessageContent{kind: contentBlocks, blocks: blocks}
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = MessageContent{kind: contentText, text: s}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		*c = MessageContent{kind: contentBlocks, blocks: blocks}
		return nil
	}

	// Unsupported shape. Decoding succeeds so one bad message cannot fail
	// the whole request; the translator omits it.
	*c = MessageContent{}

	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case contentText:
		return json.Marshal(c.text)
	case contentBlocks:
		return json.Marshal(c.blocks)
	default:
		return []byte("null"), nil
	}
}

// ContentBlock is a tagged union: exactly one of the text, tool_use or
// tool_result field sets is active, selected by Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// SystemPrompt is the inbound system field: either a bare string or an
// ordered list of {text} entries. Decoded to the list of entry texts.
type SystemPrompt []string

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = SystemPrompt{single}
		return nil
	}

	var entries []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}

	*s = texts

	return nil
}

// CacheControl marks a content block as cacheable upstream.
type CacheControl struct {
	Type string `json:"type"`
}

func ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// TextPart is one element of an array-shaped target message content.
type TextPart struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ChatContent is the target-format message body: a plain string, a list
// of text parts, or null (assistant messages carrying only tool calls).
type ChatContent struct {
	kind  chatContentKind
	text  string
	parts []TextPart
}

type chatContentKind int

const (
	chatContentNull chatContentKind = iota
	chatContentString
	chatContentParts
)

// StringContent returns a plain-string chat content.
func StringContent(s string) ChatContent {
	return ChatContent{kind: chatContentString, text: s}
}

// PartsContent returns an array-shaped chat content.
func PartsContent(parts ...TextPart) ChatContent {
	return ChatContent{kind: chatContentParts, parts: parts}
}

// Text returns the plain-string form, with ok false for null or
// array-shaped content.
func (c ChatContent) Text() (string, bool) {
	return c.text, c.kind == chatContentString
}

// Parts returns the array form, nil unless array-shaped.
func (c ChatContent) Parts() []TextPart {
	if c.kind != chatContentParts {
		return nil
	}

	return c.parts
}

// IsEmpty reports whether the content carries no usable payload.
func (c ChatContent) IsEmpty() bool {
	switch c.kind {
	case chatContentString:
		return c.text == ""
	case chatContentParts:
		return len(c.parts) == 0
	default:
		return true
	}
}

func (c ChatContent) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case chatContentString:
		return json.Marshal(c.text)
	case chatContentParts:
		return json.Marshal(c.parts)
	default:
		return []byte("null"), nil
	}
}

func (c *ChatContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ChatContent{kind: chatContentString, text: s}
		return nil
	}

	var parts []TextPart
	if err := json.Unmarshal(data, &parts); err == nil {
		*c = ChatContent{kind: chatContentParts, parts: parts}
		return nil
	}

	*c = ChatContent{}

	return nil
}

// ChatMessage is one target-format message.
type ChatMessage struct {
	Role       string      `json:"role"`
	Content    ChatContent `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// ToolCall is an assistant-issued function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatTool is a target-format tool declaration.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatFunction `json:"function"`
}

type ChatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatRequest is the outbound request body sent to a provider.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
	Tools       []ChatTool    `json:"tools,omitempty"`
}

// jsonText renders an arbitrary JSON payload as a string: a JSON string
// yields its decoded value, anything else its raw encoding. Total over
// all inputs, nil included.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
