// Package server provides the HTTP server of the sign assessment widget.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/auth"
	"github.com/ayusman/signassess/internal/logging"
	"github.com/ayusman/signassess/internal/server/api"
	"github.com/ayusman/signassess/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	TopN      int
	Logger    logrus.FieldLogger
}

// Server is the HTTP server of the application.
type Server struct {
	config Config
	router chi.Router
	log    logrus.FieldLogger
	start  time.Time

	mu   sync.Mutex
	http *http.Server
}

// New creates a Server. Routes backed by the store or the app are only
// registered when those are configured.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		log:    config.Logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/summarize", api.NewSummarizeHandler(s.config.TopN).ServeHTTP)

	if s.config.Store != nil {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.config.Store))

			users := api.NewUserHandler(s.config.Store)
			r.Post("/api/users", users.Register)
			r.Get("/api/me", users.Me)

			if s.config.App == nil {
				return
			}

			sessions := api.NewSessionHandler(s.config.Store, s.config.App)
			r.Post("/api/session/start", sessions.Start)
			r.Post("/api/session/stop", sessions.Stop)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser)
				r.Get("/api/sessions", sessions.List)
				r.Get("/api/sessions/{id}", sessions.Get)
				r.Delete("/api/sessions/{id}", sessions.Delete)
			})

			r.Mount("/api/signs", api.NewSignHandler(s.config.Store, s.config.App).Routes())
		})
	}

	if s.config.App != nil {
		q := api.NewQuizHandler(s.config.App)
		r.Get("/api/quiz", q.Get)
		r.Post("/api/quiz/next", q.Next)
		r.Post("/api/quiz/reset", q.Reset)

		r.Get("/api/stream", NewStreamHandler(s.config.App).ServeHTTP)
		r.Get("/api/live", NewLiveHandler(s.config.App, s.log).ServeHTTP)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["session_active"] = s.config.App.Current() != nil
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = hs
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("HTTP server listening")
	return hs.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()

	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}
