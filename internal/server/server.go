// Package server implements the optional read-only HTTP status server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/autojoin/internal/config"
	"github.com/woozymasta/autojoin/internal/metrics"
	"github.com/woozymasta/autojoin/internal/models"
	"github.com/woozymasta/autojoin/internal/ranker"
)

// New creates a status server for the given policy and metrics.
func New(cfg config.HTTP, policy ranker.Policy, m *metrics.Metrics) *Server {
	count := cfg.RateLimitCount
	if count <= 0 {
		count = 60
	}
	win := cfg.RateLimitWin
	if win <= 0 {
		win = time.Minute
	}

	return &Server{
		metrics:        m,
		policy:         policy,
		hardLimitCount: count,
		hardLimitWin:   win,
		shutdown:       make(chan struct{}),
	}
}

// Publish stores snap as the latest snapshot. It is meant to be registered as a poller observer.
func (s *Server) Publish(snap models.Snapshot) {
	s.latest.Store(&snap)
}

// Handler configures the HTTP routes and returns the main handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/servers", s.handleServers)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.LoggingMiddleware(s.RateLimitMiddleware(mux))
}

// Close stops background goroutines started by Handler.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

// ListenAndServe serves on address until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	httpServer := &http.Server{
		Addr:         address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", address).Msg("Status server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	defer s.Close()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Status server forced to shutdown")
		return err
	}

	return nil
}
