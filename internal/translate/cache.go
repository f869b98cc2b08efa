package translate

import "slices"

// AnnotateCache attaches the ephemeral cache marker to the final content
// block of the assembled list. System blocks are already marked at
// construction, so after this call the marked blocks are exactly the
// system blocks plus the last block of the last message.
//
// Plain-string content on the final message is rewrapped as a one-element
// text part list; array content gets the marker on its last part only
// when that part is text. Returns a new list, input untouched.
func AnnotateCache(msgs []ChatMessage) []ChatMessage {
	if len(msgs) == 0 {
		return msgs
	}

	out := slices.Clone(msgs)
	last := &out[len(out)-1]

	switch last.Content.kind {
	case chatContentString:
		last.Content = PartsContent(TextPart{
			Type:         ContentTypeText,
			Text:         last.Content.text,
			CacheControl: ephemeral(),
		})
	case chatContentParts:
		parts := slices.Clone(last.Content.parts)
		if i := len(parts) - 1; i >= 0 && parts[i].Type == ContentTypeText {
			parts[i].CacheControl = ephemeral()
		}

		last.Content = ChatContent{kind: chatContentParts, parts: parts}
	}

	return out
}
