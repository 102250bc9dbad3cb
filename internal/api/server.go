package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/open-procurement/ecatalog/internal/auth"
	"github.com/open-procurement/ecatalog/internal/catalog"
	"github.com/open-procurement/ecatalog/internal/config"
	"github.com/open-procurement/ecatalog/internal/profile"
	"github.com/open-procurement/ecatalog/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	criteria       *catalog.Service
	profiles       *profile.Service
	repo           storage.Repository
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	criteria *catalog.Service,
	profiles *profile.Service,
	repo storage.Repository,
	authenticator *auth.Authenticator,
) *Server {
	s := &Server{
		config:         cfg,
		criteria:       criteria,
		profiles:       profiles,
		repo:           repo,
		authMiddleware: NewAuthMiddleware(authenticator),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API version 0 routes, all authenticated. Criteria writes are admin-only;
	// profile writes are open to any identity and gated by the owner token.
	r.Route("/api/0", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		r.Route("/criteria", func(r chi.Router) {
			r.Get("/", s.handleListCriteria)
			r.With(s.authMiddleware.RequireAdmin).Post("/", s.handleCreateCriterion)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCriterion)
				r.With(s.authMiddleware.RequireAdmin).Patch("/", s.handlePatchCriterion)
				r.With(s.authMiddleware.RequireAdmin).Delete("/", s.handleRetireCriterion)
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Patch("/", s.handlePatchProfile)
				r.Delete("/", s.handleDestroyProfile)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
