// Package web provides the HTTP server and handlers for the serial year lookup.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/serialyear/internal/config"
	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
	mw "github.com/JonMunkholm/serialyear/internal/web/middleware"
)

// LoadLister lists recent load records. It is satisfied by
// database.LoadStore.
type LoadLister interface {
	RecentLoads(ctx context.Context, limit int) ([]core.LoadRecord, error)
}

// ServerOption configures optional server dependencies.
type ServerOption func(*Server)

// WithLoadLister enables GET /api/loads.
func WithLoadLister(l LoadLister) ServerOption {
	return func(s *Server) { s.loads = l }
}

// Server is the HTTP server for the lookup service.
type Server struct {
	service *core.Service
	history history.Store
	loads   LoadLister
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limiter *mw.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, store history.Store, cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		history: store,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
		}))
	}

	s.router.Use(withClientMetadata)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/brands/{brand}", s.handleBrandPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/brands", s.handleListBrands)
		r.Get("/brands/{brand}/breakpoints", s.handleBreakpoints)
		r.Get("/lookup", s.handleLookup)
		r.Get("/anomalies", s.handleAnomalies)

		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleDeleteHistory)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(s.cfg.Security))
			r.Post("/reload", s.handleReload)
			r.Get("/loads", s.handleListLoads)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiter sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
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

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
