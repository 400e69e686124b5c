// Package server owns the HTTP listener: the chi router, the middleware
// chain, and graceful shutdown. Routes for disabled subsystems are never
// mounted, so a request against them falls through to 404.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sayless/sayless/internal/config"
	"github.com/sayless/sayless/internal/handler"
	"github.com/sayless/sayless/internal/openapi"
	"github.com/sayless/sayless/internal/server/middleware"
	"github.com/sayless/sayless/internal/service"
	"github.com/sayless/sayless/internal/store"
)

// Server is the top-level HTTP server for sayless.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	store      *store.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server, wires up all routes and middleware, and returns
// it ready to listen. The tokens service is nil when the token subsystem
// is disabled; strikes is nil when origin recording is disabled.
func New(cfg *config.Config, st *store.Store, links *service.LinkService, tokens *service.TokenService, strikes *service.StrikeService, version string, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		logger: logger,
	}
	s.setupRouter(links, tokens, strikes, version)
	return s
}

func (s *Server) setupRouter(links *service.LinkService, tokens *service.TokenService, strikes *service.StrikeService, version string) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Location", "X-Request-ID"},
		MaxAge:         300,
	}))

	linkHandler := handler.NewLinkHandler(links, s.logger)
	sysHandler := handler.NewSystemHandler(s.cfg, s.store, version, s.logger)

	r.Get("/healthz", sysHandler.Healthz)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(openapi.Generate(s.cfg, version)).Serve)

	r.Route("/l", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limit := s.cfg.Server.CreateRateLimit; limit > 0 {
				r.Use(middleware.RateLimit(limit))
			}
			r.Post("/create", linkHandler.Create)
		})

		r.Get("/config_info", sysHandler.ConfigInfo)
		r.Get("/status", sysHandler.Status)

		if tokens != nil {
			tokenHandler := handler.NewTokenHandler(tokens, s.logger)
			r.Post("/tokens/create", tokenHandler.Create)
			r.Post("/tokens/revoke", tokenHandler.Revoke)

			// The strike report surface is admin-gated, so it needs both
			// the ledger and a token authority to check against.
			if strikes != nil {
				strikeHandler := handler.NewStrikeHandler(strikes, tokens, s.logger)
				r.Post("/strikes/report", strikeHandler.Report)
			}
		}

		r.Get("/{id}", linkHandler.Redirect)
		r.Get("/{id}/info", linkHandler.Info)
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or
// SIGTERM is received, then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	timeout := 30 * time.Second
	if d, err := time.ParseDuration(s.cfg.Server.ShutdownTimeout); err == nil && d > 0 {
		timeout = d
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
