package translate

import "github.com/samber/lo"

// ReservedToolName is handled by the proxy itself and never forwarded to
// a provider.
const ReservedToolName = "web_search"

// TranslateTools remaps inbound tool declarations to the provider
// function-tool shape, dropping the reserved internal tool. Returns nil
// when nothing survives so the field is omitted from the outbound body.
func TranslateTools(tools []Tool) []ChatTool {
	forwarded := lo.Filter(tools, func(t Tool, _ int) bool {
		return t.Name != ReservedToolName
	})

	if len(forwarded) == 0 {
		return nil
	}

	return lo.Map(forwarded, func(t Tool, _ int) ChatTool {
		return ChatTool{
			Type: "function",
			Function: ChatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	})
}
