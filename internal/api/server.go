// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the operator HTTP surface: probes, metrics and a
// read-only view of the job records.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/ManuGH/vidmark/internal/api/middleware"
	"github.com/ManuGH/vidmark/internal/health"
	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/records"
)

// Config configures the ops server.
type Config struct {
	Listen string
	// RateLimit is requests per minute per client IP on /api routes.
	RateLimit int
	// TracingService enables otelhttp spans when non-empty.
	TracingService string
	// MaxConns caps concurrent connections. Zero means DefaultMaxConns.
	MaxConns int
}

// DefaultMaxConns bounds the ops listener; probes and scrapes are few.
const DefaultMaxConns = 64

// Server is the ops HTTP server.
type Server struct {
	cfg     Config
	health  *health.Manager
	records records.Repository
	router  chi.Router
}

// NewServer wires the routes. records may be nil, in which case the /api
// routes answer 503.
func NewServer(cfg Config, hm *health.Manager, repo records.Repository) *Server {
	s := &Server{cfg: cfg, health: hm, records: repo}
	s.router = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.PerMinute(s.cfg.RateLimit))
		}
		r.Get("/stats", s.handleStats)
		r.Get("/jobs", s.handleJobs)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w)
	})
	return r
}

// ListenAndServe serves until ctx ends, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	logger := log.WithComponent("api")

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	maxConns := s.cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	ln = netutil.LimitListener(ln, maxConns)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str(log.FieldEvent, "api.listening").Str("addr", ln.Addr().String()).Msg("ops server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "api.shutdown_forced").Msg("ops server did not drain in time")
		_ = srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Str(log.FieldEvent, "api.stopped").Msg("ops server stopped")
	return nil
}
