// Package sse decodes provider server-sent-event streams into a lazy
// sequence of parsed JSON event objects.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

const dataPrefix = "data: "

// doneSentinel terminates an OpenAI-style event stream.
const doneSentinel = "[DONE]"

// Decoder incrementally parses an SSE byte stream. Raw bytes are buffered
// until a complete line exists, so a multi-byte character split across
// two reads is reassembled before decoding. Forward-only, not
// restartable, single-goroutine.
type Decoder struct {
	body    io.ReadCloser
	scratch []byte
	pending []byte
	queue   []map[string]any
	readErr error
	done    bool
	closed  bool
}

// NewDecoder wraps a live response body. The caller must arrange for
// Close to run on every exit path; Next also closes the body once the
// stream is exhausted.
func NewDecoder(body io.ReadCloser) *Decoder {
	return &Decoder{
		body:    body,
		scratch: make([]byte, 4096),
	}
}

// Next returns the next parsed event in arrival order. It returns io.EOF
// when the stream is exhausted, or the underlying read error once all
// events received before the failure have been drained.
func (d *Decoder) Next() (map[string]any, error) {
	for {
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]

			return ev, nil
		}

		if d.done {
			_ = d.Close()

			if d.readErr != nil {
				return nil, d.readErr
			}

			return nil, io.EOF
		}

		d.fill()
	}
}

func (d *Decoder) fill() {
	n, err := d.body.Read(d.scratch)
	if n > 0 {
		d.pending = append(d.pending, d.scratch[:n]...)
		d.drainLines()
	}

	if err == nil {
		return
	}

	d.done = true

	if !errors.Is(err, io.EOF) {
		d.readErr = err
	}

	// A final line without a trailing newline is still a line.
	if len(d.pending) > 0 {
		d.processLine(d.pending)
		d.pending = nil
	}
}

func (d *Decoder) drainLines() {
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			return
		}

		line := d.pending[:i]
		d.pending = d.pending[i+1:]
		d.processLine(line)
	}
}

func (d *Decoder) processLine(line []byte) {
	text := strings.TrimSpace(string(line))
	if strings.HasPrefix(text, dataPrefix) {
		text = strings.TrimSpace(strings.TrimPrefix(text, dataPrefix))
	}

	if text == "" || text == doneSentinel {
		return
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(text), &event); err != nil {
		log.Debug().Err(err).Str("line", text).Msg("skipping unparsable event line")
		return
	}

	d.queue = append(d.queue, event)
}

// Close releases the underlying body. Idempotent.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true

	return d.body.Close()
}
