package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wko-katas/katas-engine/internal/auth"
	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/config"
	"github.com/wko-katas/katas-engine/internal/refresh"
	"github.com/wko-katas/katas-engine/internal/services"
	"github.com/wko-katas/katas-engine/internal/source"
	"github.com/wko-katas/katas-engine/internal/viewer"
)

// CatalogRefresher reloads the catalog on demand
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
	Status() refresh.Status
}

// Deps holds the collaborators the API serves from
type Deps struct {
	Auth       *auth.Service
	Catalog    *catalog.Store
	Viewers    *viewer.Manager
	Videos     source.Repository
	Thumbnails viewer.ThumbnailResolver
	Refresher  CatalogRefresher
	Registry   *services.Registry
	Logger     *slog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	auth           *auth.Service
	catalog        *catalog.Store
	viewers        *viewer.Manager
	videos         source.Repository
	thumbnails     viewer.ThumbnailResolver
	refresher      CatalogRefresher
	registry       *services.Registry
	authMiddleware *AuthMiddleware
	logger         *slog.Logger
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = services.NewRegistry()
	}

	s := &Server{
		config:         cfg,
		auth:           deps.Auth,
		catalog:        deps.Catalog,
		viewers:        deps.Viewers,
		videos:         deps.Videos,
		thumbnails:     deps.Thumbnails,
		refresher:      deps.Refresher,
		registry:       registry,
		authMiddleware: NewAuthMiddleware(deps.Auth, logger),
		logger:         logger,
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

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Range", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Range", "Accept-Ranges", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Streaming routes are long-lived and skip the request timeout
		r.With(s.authMiddleware.RequireUser).Get("/proxy/{id}", s.handleProxyVideo)
		r.With(s.authMiddleware.RequireUser).Get("/progress/{id}/ws", s.handlePlaybackWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", s.handleLogin)
				r.With(s.authMiddleware.RequireAdmin).Post("/register", s.handleRegister)
				r.With(s.authMiddleware.RequireUser).Get("/verify", s.handleVerify)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(s.authMiddleware.RequireAdmin)
				r.Get("/", s.handleListUsers)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.Route("/katas", func(r chi.Router) {
				r.Get("/", s.handleListKatas)
				r.Get("/all", s.handleAllKatas)
				r.With(s.authMiddleware.RequireUser).Post("/refresh", s.handleRefreshCatalog)
				r.With(s.authMiddleware.RequireUser).Get("/{id}", s.handleGetKata)
			})

			// Anonymous viewers share one state record, so only reads are open to them
			r.Get("/filter", s.handleGetFilter)
			r.Get("/favorites", s.handleListFavorites)
			r.Get("/preferences", s.handleGetPreferences)
			r.Get("/progress", s.handleListProgress)
			r.Get("/progress/{id}", s.handleGetProgress)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware.RequireUser)
				r.Put("/filter", s.handleSetFilter)
				r.Post("/favorites/{id}", s.handleToggleFavorite)
				r.Put("/preferences", s.handleSetPreferences)
				r.Put("/progress/{id}", s.handleUpdateProgress)
				r.Post("/progress/{id}/complete", s.handleCompleteProgress)
			})

			r.Get("/thumbnails/{id}", s.handleThumbnail)
			r.With(s.authMiddleware.RequireUser).Get("/video/{id}", s.handleVideoURL)
		})
	})

	s.router = r
}

// session returns the viewer session of the caller, anonymous when no token was sent
func (s *Server) session(r *http.Request) *viewer.Session {
	return s.viewers.Session(r.Context(), UserFromContext(r.Context()))
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
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
