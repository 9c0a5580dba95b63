// Package web provides the HTTP server for inspecting and cleaning APC
// spreadsheets.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/apcclean/internal/config"
	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/logging"
	"github.com/JonMunkholm/apcclean/internal/web/middleware"
)

// Exporter copies a cleaned table to a database table.
type Exporter interface {
	Export(ctx context.Context, name string, runID uuid.UUID, t *core.Table) (int64, error)
}

// Deps are the collaborators a Server needs. Exporter may be nil, which
// disables export.
type Deps struct {
	Names    *core.NameNormalizer
	Limiter  *core.JobLimiter
	Exporter Exporter
}

// Server is the HTTP server for the cleaning service.
type Server struct {
	cfg      *config.Config
	cleaner  *core.Cleaner
	names    *core.NameNormalizer
	limiter  *core.JobLimiter
	exporter Exporter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server with its routes installed.
func NewServer(cfg *config.Config, deps Deps) *Server {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = core.NewJobLimiter(cfg.Clean.MaxConcurrent, cfg.Clean.MaxWaitTime)
	}

	s := &Server{
		cfg:      cfg,
		cleaner:  core.NewCleaner(deps.Names),
		names:    deps.Names,
		limiter:  limiter,
		exporter: deps.Exporter,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/report", s.handleReport)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/synonyms", s.handleSynonyms)
		r.Post("/inspect", s.handleInspect)
		r.Post("/clean", s.handleClean)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	return s.server.ListenAndServe()
}

// Shutdown waits for running cleans to finish, then stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if status := s.limiter.Status(); status.Active > 0 {
		logging.FromContext(ctx).Info("waiting for cleans to complete", "active", status.Active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			logging.FromContext(ctx).Warn("cleans did not complete in time", "error", err)
		}
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

type healthResponse struct {
	Status string                `json:"status"`
	Jobs   core.JobLimiterStatus `json:"jobs"`
	Export bool                  `json:"export"`
	Time   time.Time             `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, healthResponse{
		Status: "ok",
		Jobs:   s.limiter.Status(),
		Export: s.exporter != nil,
		Time:   time.Now().UTC(),
	})
}
