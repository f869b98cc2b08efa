package sse

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader returns its chunks one per Read call, regardless of
// buffer size, to simulate arbitrary network segmentation.
type chunkedReader struct {
	chunks [][]byte
	closed bool
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}

	chunk := r.chunks[0]
	if len(chunk) > len(p) {
		n := copy(p, chunk)
		r.chunks[0] = chunk[n:]

		return n, nil
	}

	r.chunks = r.chunks[1:]

	return copy(p, chunk), nil
}

func (r *chunkedReader) Close() error {
	r.closed = true
	return nil
}

func chunks(parts ...string) *chunkedReader {
	r := &chunkedReader{}
	for _, p := range parts {
		r.chunks = append(r.chunks, []byte(p))
	}

	return r
}

func drain(t *testing.T, d *Decoder) []map[string]any {
	t.Helper()

	var events []map[string]any

	for {
		event, err := d.Next()
		if errors.Is(err, io.EOF) {
			return events
		}

		require.NoError(t, err)
		events = append(events, event)
	}
}

func TestDecoderSingleEvent(t *testing.T) {
	d := NewDecoder(chunks("data: {\"id\":\"1\"}\n\n"))

	events := drain(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0]["id"])
}

func TestDecoderEventSplitAcrossReads(t *testing.T) {
	d := NewDecoder(chunks(
		"data: {\"id\"",
		":\"1\"}\nda",
		"ta: {\"id\":\"2\"}\n",
	))

	events := drain(t, d)
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0]["id"])
	assert.Equal(t, "2", events[1]["id"])
}

func TestDecoderMultiByteRuneSplitAcrossReads(t *testing.T) {
	// "héllo" with the two-byte é delivered one byte per read.
	payload := []byte("data: {\"text\":\"héllo\"}\n")
	mid := 17 // between the two bytes of é

	d := NewDecoder(&chunkedReader{chunks: [][]byte{payload[:mid], payload[mid : mid+1], payload[mid+1:]}})

	events := drain(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "héllo", events[0]["text"])
}

func TestDecoderDoneSentinelSkipped(t *testing.T) {
	d := NewDecoder(chunks("data: [DONE]\n"))

	assert.Empty(t, drain(t, d))
}

func TestDecoderMalformedLineSkipped(t *testing.T) {
	d := NewDecoder(chunks(
		"data: {not json}\n",
		": comment line\n",
		"data: {\"id\":\"ok\"}\n",
	))

	events := drain(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0]["id"])
}

func TestDecoderFlushesUnterminatedFinalLine(t *testing.T) {
	d := NewDecoder(chunks("data: {\"id\":\"tail\"}"))

	events := drain(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "tail", events[0]["id"])
}

func TestDecoderBlankLinesIgnored(t *testing.T) {
	d := NewDecoder(chunks("\n\ndata: {\"id\":\"1\"}\n\n\n"))

	events := drain(t, d)
	require.Len(t, events, 1)
}

func TestDecoderClosesBodyOnExhaustion(t *testing.T) {
	body := chunks("data: {\"id\":\"1\"}\n")
	d := NewDecoder(body)

	drain(t, d)
	assert.True(t, body.closed)
}

func TestDecoderCloseIdempotent(t *testing.T) {
	body := chunks("data: {\"id\":\"1\"}\n")
	d := NewDecoder(body)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.True(t, body.closed)
}

type failingReader struct {
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, errors.New("connection reset")
	}

	r.read = true

	return copy(p, "data: {\"id\":\"1\"}\n"), nil
}

func (r *failingReader) Close() error { return nil }

func TestDecoderSurfacesReadError(t *testing.T) {
	d := NewDecoder(&failingReader{})

	event, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", event["id"])

	_, err = d.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
