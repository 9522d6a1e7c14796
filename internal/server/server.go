package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/metisguard/metis/internal/api/ws"
	"github.com/metisguard/metis/internal/auth"
	"github.com/metisguard/metis/internal/config"
	"github.com/metisguard/metis/internal/governance"
	"github.com/metisguard/metis/internal/hub"
	"github.com/metisguard/metis/internal/proxy"
	"github.com/metisguard/metis/internal/server/middleware"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	engine     *governance.Engine
	hub        *hub.Hub
	auth       *auth.Service
	classifier *proxy.Classifier
	cfg        *config.Config
}

// New creates a Server with all routes wired.
func New(ctx context.Context, cfg *config.Config, engine *governance.Engine, violationHub *hub.Hub, authSvc *auth.Service, classifier *proxy.Classifier) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Agent-ID", "X-Target-URL", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router:     router,
		engine:     engine,
		hub:        violationHub,
		auth:       authSvc,
		classifier: classifier,
		cfg:        cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with three sub-groups:
	// 1. Rate-limited group for the token endpoint.
	// 2. Open group for reporting and reads: agents report their own
	//    actions, so the ingest path carries no credential.
	// 3. Authenticated group for permission management.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 1, 5))

			authConfig := huma.DefaultConfig("Metis Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, authSvc)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 100, 200))

			apiConfig := huma.DefaultConfig("Metis API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerReportRoutes(api, engine, violationHub)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authSvc))

			adminConfig := huma.DefaultConfig("Metis Admin API", "1.0.0")
			adminConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			adminAPI := humachi.New(r, adminConfig)
			registerAdminRoutes(adminAPI, engine)
		})
	})

	// WebSocket observer stream.
	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, ws.NewHandler(violationHub))
	})

	// Traffic classifier pass-through.
	router.HandleFunc("/proxy", s.handleProxy)

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
