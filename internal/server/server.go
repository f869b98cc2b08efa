// Package server wires the configuration, middleware chain and handlers
// into a running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ccbridge/ccbridge/internal/config"
	"github.com/ccbridge/ccbridge/internal/handlers"
	"github.com/ccbridge/ccbridge/internal/middleware"
	"github.com/ccbridge/ccbridge/internal/upstream"
)

type Server struct {
	cfg  *config.Config
	http *http.Server
}

// New builds the server from a configuration snapshot. The provider
// registry and client cache are constructed once here and shared by
// every request.
func New(cfg *config.Config) *Server {
	registry := upstream.NewRegistry(cfg.Providers)
	clients := upstream.NewClientCache(upstream.TransportOptions{
		ProxyURL:              cfg.ProxyURL,
		ResponseHeaderTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	dispatcher := upstream.NewDispatcher(registry, clients)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler())
	mux.Handle("/", middleware.Chain(
		handlers.NewProxyHandler(dispatcher),
		middleware.Logging(),
		middleware.TelemetryAbsorber(),
		middleware.Auth(cfg.APIKey),
		middleware.Router(cfg.Router),
	))

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Int("providers", len(s.cfg.Providers)).Msg("server listening")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("server shutting down")
	return s.http.Shutdown(ctx)
}
