package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog/log"
)

const completionsPath = "/v1/chat/completions"

// UpstreamError is a non-2xx provider response. Hard failure, no retry.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// Dispatcher resolves a provider and issues the translated request.
type Dispatcher struct {
	registry *Registry
	clients  *ClientCache
}

func NewDispatcher(registry *Registry, clients *ClientCache) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		clients:  clients,
	}
}

// Do posts the encoded chat-completion body to the named provider and
// returns the decompressed response body. The caller owns the returned
// reader and must close it.
func (d *Dispatcher) Do(ctx context.Context, providerName string, body []byte) (io.ReadCloser, error) {
	provider, err := d.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(provider.APIBase, "/") + completionsPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	log.Debug().Str("provider", providerName).Str("url", endpoint).Int("body_bytes", len(body)).
		Msg("dispatching upstream request")

	resp, err := d.clients.Get(providerName).Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()

		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	return decompressed(resp)
}

// decompressed unwraps gzip and brotli bodies; the pooled transport asks
// for identity encoding but some providers compress regardless.
func decompressed(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip response: %w", err)
		}

		return &wrappedBody{Reader: zr, body: resp.Body}, nil
	case "br":
		return &wrappedBody{Reader: brotli.NewReader(resp.Body), body: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

// wrappedBody closes the underlying network body, not just the
// decompressor.
type wrappedBody struct {
	io.Reader
	body io.ReadCloser
}

func (w *wrappedBody) Close() error {
	return w.body.Close()
}
