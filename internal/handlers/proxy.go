// Package handlers contains the HTTP entry points of the proxy and the
// machinery that renders upstream responses in the format callers expect.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ccbridge/ccbridge/internal/middleware"
	"github.com/ccbridge/ccbridge/internal/sse"
	"github.com/ccbridge/ccbridge/internal/translate"
	"github.com/ccbridge/ccbridge/internal/upstream"
)

// ProxyHandler accepts Anthropic-format message requests, translates
// them to the chat-completions format, forwards them to the selected
// provider and converts the response back.
type ProxyHandler struct {
	dispatcher *upstream.Dispatcher
	writer     *Writer
}

func NewProxyHandler(dispatcher *upstream.Dispatcher) *ProxyHandler {
	return &ProxyHandler{
		dispatcher: dispatcher,
		writer:     NewWriter(),
	}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, readErr := io.ReadAll(r.Body)

	var req translate.Request

	parseErr := readErr
	if parseErr == nil {
		parseErr = json.Unmarshal(body, &req)
	}

	route, ok := middleware.RouteFromContext(r.Context())
	if !ok {
		route = middleware.Route{Provider: "default", Model: req.Model}
	}

	model := route.Model
	if model == "" {
		model = req.Model
	}

	// Streaming headers go out before dispatch so the caller sees a
	// stream even when the upstream call fails.
	if req.Stream {
		setStreamHeaders(w)
	}

	var err error
	if parseErr != nil {
		err = fmt.Errorf("invalid request body: %w", parseErr)
	} else {
		err = h.proxy(r.Context(), w, &req, model, route.Provider)
	}

	if err != nil {
		log.Warn().Err(err).Str("provider", route.Provider).Str("model", model).Msg("request failed")
		h.writer.WriteStream(w, newErrorStream(model, err), model)
	}
}

// proxy runs the forward pipeline. On error the writer has not been
// called yet, so the caller can still synthesize an error stream.
func (h *ProxyHandler) proxy(ctx context.Context, w http.ResponseWriter, req *translate.Request, model, provider string) error {
	messages := translate.Translate(req.Messages, req.System)
	messages = translate.PairToolCalls(messages)
	messages = translate.AnnotateCache(messages)

	out := translate.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		Tools:       translate.TranslateTools(req.Tools),
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding upstream request: %w", err)
	}

	upstreamBody, err := h.dispatcher.Do(ctx, provider, encoded)
	if err != nil {
		return err
	}

	if req.Stream {
		h.writer.WriteStream(w, sse.NewDecoder(upstreamBody), model)
		return nil
	}

	defer func() {
		_ = upstreamBody.Close()
	}()

	raw, err := io.ReadAll(upstreamBody)
	if err != nil {
		return fmt.Errorf("reading upstream response: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decoding upstream response: %w", err)
	}

	h.writer.WriteMessage(w, &resp, model)

	return nil
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
