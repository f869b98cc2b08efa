package handlers

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// errorStream is a synthesized one-chunk event sequence carrying a
// human-readable failure message with a terminal finish reason, so the
// caller always receives well-formed terminal output regardless of where
// the request failed.
type errorStream struct {
	chunk map[string]any
	sent  bool
}

func newErrorStream(model string, err error) *errorStream {
	return &errorStream{
		chunk: map[string]any{
			"id":      "chatcmpl-" + uuid.NewString(),
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []any{
				map[string]any{
					"index": float64(0),
					"delta": map[string]any{
						"content": "Error: " + err.Error(),
					},
					"finish_reason": "error",
				},
			},
		},
	}
}

func (s *errorStream) Next() (map[string]any, error) {
	if s.sent {
		return nil, io.EOF
	}

	s.sent = true

	return s.chunk, nil
}

func (s *errorStream) Close() error {
	return nil
}
