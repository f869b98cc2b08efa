package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccbridge/ccbridge/internal/config"
)

func newDispatcher(base string) *Dispatcher {
	registry := NewRegistry([]config.Provider{
		{Name: "test", APIBase: base, APIKey: "sk-test"},
	})

	return NewDispatcher(registry, NewClientCache(TransportOptions{}))
}

func TestDispatcherPostsToCompletionsPath(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody []byte
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"id":"resp"}`))
	}))
	defer ts.Close()

	// Trailing slash on the base URL must not produce a double slash.
	body, err := newDispatcher(ts.URL + "/").Do(context.Background(), "test", []byte(`{"model":"m"}`))
	require.NoError(t, err)
	defer body.Close()

	out, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.JSONEq(t, `{"model":"m"}`, string(gotBody))
	assert.JSONEq(t, `{"id":"resp"}`, string(out))
}

func TestDispatcherUnknownProvider(t *testing.T) {
	_, err := newDispatcher("http://127.0.0.1:0").Do(context.Background(), "nope", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestDispatcherUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newDispatcher(ts.URL).Do(context.Background(), "test", []byte(`{}`))
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.Status)
	assert.Contains(t, upstreamErr.Body, "rate limited")
}

func TestDispatcherGzipResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(`{"id":"zipped"}`))
		_ = zw.Close()

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer ts.Close()

	body, err := newDispatcher(ts.URL).Do(context.Background(), "test", []byte(`{}`))
	require.NoError(t, err)
	defer body.Close()

	out, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"zipped"}`, string(out))
}

func TestDispatcherBrotliResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(`{"id":"br"}`))
		_ = bw.Close()

		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer ts.Close()

	body, err := newDispatcher(ts.URL).Do(context.Background(), "test", []byte(`{}`))
	require.NoError(t, err)
	defer body.Close()

	out, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"br"}`, string(out))
}

func TestDispatcherContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDispatcher(ts.URL).Do(ctx, "test", []byte(`{}`))
	require.Error(t, err)
}
