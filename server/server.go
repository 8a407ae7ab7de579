// Package server exposes a tracker session over HTTP: a JSON API for the
// dashboard, Prometheus metrics and a scheduled price refresh.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/etnz/tracker"
)

// Config holds server configuration
type Config struct {
	Addr    string
	Session *tracker.Session
	// Gatherer serves /metrics, prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
	// RefreshSchedule is a cron spec ("@every 5m", "*/15 * * * *") for the
	// refresh-and-save job. Empty disables the job.
	RefreshSchedule string
	// CORSOrigins defaults to any origin.
	CORSOrigins []string
	Log         zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	cron     *cron.Cron
	session  *tracker.Session
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

// New creates a new HTTP server. It fails when the refresh schedule cannot
// be parsed.
func New(cfg Config) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		session:  cfg.Session,
		gatherer: cfg.Gatherer,
		log:      cfg.Log.With().Str("component", "server").Logger(),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes()

	if cfg.RefreshSchedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(cfg.RefreshSchedule, s.runRefresh); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
		}
		s.log.Info().Str("schedule", cfg.RefreshSchedule).Msg("refresh job registered")
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	// refreshing a large profile is one quote lookup per holding.
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Put("/active", s.handleSetActive)
			r.Delete("/{name}", s.handleDeleteProfile)
		})
		r.Route("/holdings", func(r chi.Router) {
			r.Post("/", s.handleAddHolding)
			r.Delete("/", s.handleResetHoldings)
			r.Put("/{index}", s.handleEditHolding)
			r.Delete("/{index}", s.handleRemoveHolding)
		})
		r.Get("/valuation", s.handleValuation)
		r.Post("/import", s.handleImport)
		r.Post("/refresh", s.handleRefresh)
	})
}

// Start runs the refresh job and serves until Shutdown.
func (s *Server) Start() error {
	if s.cron != nil {
		s.cron.Start()
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the refresh job, waiting for a running one, and gracefully
// shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
		}
	}
	return s.server.Shutdown(ctx)
}

// runRefresh is the scheduled job: refresh the active profile and save.
func (s *Server) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	res := s.session.Refresh(ctx, nil)
	if err := s.session.Save(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled refresh not saved")
		return
	}
	s.log.Info().Int("attempted", res.Attempted).Int("updated", res.Updated).Msg("scheduled refresh done")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
