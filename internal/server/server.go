package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/whiskeyshelf/apiserver/config"
	"github.com/whiskeyshelf/apiserver/internal/handlers"
	"github.com/whiskeyshelf/apiserver/internal/ratelimit"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	deps       *Deps
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	deps, err := OpenDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router := NewRouter(deps, cfg)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		deps:       deps,
	}, nil
}

// NewRouter mounts every route on a fresh chi router.
func NewRouter(deps *Deps, cfg config.Config) *chi.Mux {
	auth := handlers.NewAuthHandler(deps.Users, cfg.JWTSecret)

	var throttle func(http.Handler) http.Handler
	if cfg.HTTP.AuthRateLimit > 0 {
		throttle = handlers.RateLimit(ratelimit.New(cfg.HTTP.AuthRateLimit, max(cfg.HTTP.AuthRateBurst, 1)))
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, auth, throttle)
	})
	router.Route("/tags", func(r chi.Router) {
		handlers.AttributeRouter(r, deps.Tags, auth.RequireAuth)
	})
	router.Route("/places", func(r chi.Router) {
		handlers.AttributeRouter(r, deps.Places, auth.RequireAuth)
	})
	router.Route("/whiskeys", func(r chi.Router) {
		handlers.WhiskeyRouter(r, deps.Whiskeys, auth.RequireAuth)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.deps.Close())
}
