package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ccbridge/ccbridge/internal/config"
)

// longContextThreshold is the prompt token count above which requests
// are sent to the long-context route.
const longContextThreshold = 60000

type routeContextKey struct{}

// Route identifies the provider and model a request was steered to.
type Route struct {
	Provider string
	Model    string
}

// RouteFromContext returns the route selected for the request, if any.
func RouteFromContext(ctx context.Context) (Route, bool) {
	route, ok := ctx.Value(routeContextKey{}).(Route)
	return route, ok
}

// Router inspects the request body and picks a provider and model:
// an explicit "provider,model" override wins, then prompt size, then
// the requested model family, then the thinking flag, then the default
// route. The selected model is written back into the body.
func Router(routes config.RouterConfig) Middleware {
	var encoder *tiktoken.Tiktoken

	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		encoder = enc
	} else {
		log.Warn().Err(err).Msg("token encoder unavailable, long-context routing disabled")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, `{"error":"failed to read request"}`, http.StatusBadRequest)
				return
			}

			route, body := selectRoute(routes, encoder, body)

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))

			ctx := context.WithValue(r.Context(), routeContextKey{}, route)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func selectRoute(routes config.RouterConfig, encoder *tiktoken.Tiktoken, body []byte) (Route, []byte) {
	requested := gjson.GetBytes(body, "model").String()

	// "provider,model" in the model field bypasses routing entirely.
	if provider, model, ok := strings.Cut(requested, ","); ok && provider != "" && model != "" {
		return applyRoute(Route{Provider: provider, Model: model}, body)
	}

	target := routes.Default

	switch {
	case encoder != nil && promptTokens(encoder, body) > longContextThreshold && routes.LongContext != "":
		target = routes.LongContext
	case strings.HasPrefix(requested, "claude-3-5-haiku") && routes.Background != "":
		target = routes.Background
	case gjson.GetBytes(body, "thinking").Exists() && routes.Think != "":
		target = routes.Think
	}

	provider, model, ok := strings.Cut(target, ",")
	if !ok || provider == "" {
		return Route{Provider: "default", Model: requested}, body
	}

	return applyRoute(Route{Provider: provider, Model: model}, body)
}

func applyRoute(route Route, body []byte) (Route, []byte) {
	rewritten, err := sjson.SetBytes(body, "model", route.Model)
	if err != nil {
		log.Debug().Err(err).Msg("model rewrite failed, forwarding body unchanged")
		return route, body
	}

	return route, rewritten
}

// promptTokens estimates the size of the prompt by counting tokens in
// the system text, message content and tool definitions.
func promptTokens(encoder *tiktoken.Tiktoken, body []byte) int {
	total := 0

	count := func(s string) {
		if s != "" {
			total += len(encoder.Encode(s, nil, nil))
		}
	}

	count(gjson.GetBytes(body, "system").String())

	gjson.GetBytes(body, "system.#.text").ForEach(func(_, value gjson.Result) bool {
		count(value.String())
		return true
	})

	gjson.GetBytes(body, "messages").ForEach(func(_, message gjson.Result) bool {
		content := message.Get("content")
		if content.Type == gjson.String {
			count(content.String())
			return true
		}

		content.ForEach(func(_, block gjson.Result) bool {
			count(block.Get("text").String())
			count(block.Get("content").Raw)
			return true
		})

		return true
	})

	gjson.GetBytes(body, "tools").ForEach(func(_, tool gjson.Result) bool {
		count(tool.Get("description").String())
		count(tool.Get("input_schema").Raw)
		return true
	})

	return total
}
