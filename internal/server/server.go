// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root for HTTP: it receives an open
// store.Store and builds
//
//	store.Store → NoteService / UserService → NoteHandler / UserHandler → routes
//
// The store is opened (and closed) by the caller, so the same Server can be
// started against SQLite or PostgreSQL without knowing which.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notebook/internal/handler"
	"github.com/sakif/notebook/internal/middleware"
	"github.com/sakif/notebook/internal/service"
	"github.com/sakif/notebook/internal/store"
)

// DefaultPort is the port the server listens on when none is configured.
const DefaultPort = 5001

// Config holds server configuration.
type Config struct {
	Port int
	// StaticDir holds a built frontend with an index.html. Empty disables
	// static serving; the server is then API-only.
	StaticDir string
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  *store.Store
}

// New creates a Server over an already opened and prepared store.
func New(cfg Config, logger *slog.Logger, st *store.Store) (*Server, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/health            → store reachability
// GET    /api/notes             → list/search notes (?q=, limit, offset)
// POST   /api/notes             → create note
// GET    /api/notes/{id}        → get note
// PUT    /api/notes/{id}        → partial update
// DELETE /api/notes/{id}        → delete note
// (same five routes under /api/users)
// GET    /*                     → frontend files, index.html fallback
//
// Middleware order: RequestID must run before Logger so the ID is logged.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	noteHandler := handler.NewNoteHandler(service.NewNoteService(s.store.Notes, s.logger), s.logger)
	userHandler := handler.NewUserHandler(service.NewUserService(s.store.Users, s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(s.store, string(s.store.Descriptor.Driver), s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Get("/notes", noteHandler.HandleList)
		r.Post("/notes", noteHandler.HandleCreate)
		r.Get("/notes/{id}", noteHandler.HandleGetByID)
		r.Put("/notes/{id}", noteHandler.HandleUpdate)
		r.Delete("/notes/{id}", noteHandler.HandleDelete)

		r.Get("/users", userHandler.HandleList)
		r.Post("/users", userHandler.HandleCreate)
		r.Get("/users/{id}", userHandler.HandleGetByID)
		r.Put("/users/{id}", userHandler.HandleUpdate)
		r.Delete("/users/{id}", userHandler.HandleDelete)

		// Unknown API paths must not fall through to the frontend.
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"no such endpoint"}` + "\n"))
		})
	})

	if s.config.StaticDir != "" {
		spa, err := handler.NewSPAHandler(s.config.StaticDir, s.logger)
		if err != nil {
			return fmt.Errorf("static dir %s: %w", s.config.StaticDir, err)
		}
		s.router.Handle("/*", spa)
	}

	return nil
}

// Start runs the HTTP server until ctx is cancelled or the process receives
// SIGINT/SIGTERM, then drains in-flight requests for up to 30 seconds.
// The store is left open; it belongs to the caller.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.store.Descriptor.String()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("reason", context.Cause(ctx).Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
