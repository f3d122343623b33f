// Package web exposes the lessons viewer over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/notify"
	"github.com/p-n-ai/pai-lessons/internal/quiz"
)

// Config holds dependencies for the server.
type Config struct {
	Engine *quiz.Engine
	Loader *catalog.Loader
	Hub    *notify.Hub
	// Ready reports whether the progress store is reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

// Server routes API requests to the engine and catalog loader.
type Server struct {
	engine *quiz.Engine
	loader *catalog.Loader
	hub    *notify.Hub
	ready  func(ctx context.Context) error
	mux    *http.ServeMux
}

// NewServer creates a server and registers its routes.
func NewServer(cfg Config) *Server {
	hub := cfg.Hub
	if hub == nil {
		hub = notify.NewHub(0)
	}
	s := &Server{
		engine: cfg.Engine,
		loader: cfg.Loader,
		hub:    hub,
		ready:  cfg.Ready,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("GET /api/grades/{grade}", s.handleGrade)
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /api/lessons", s.handleLessons)
	s.mux.HandleFunc("GET /api/quiz", s.handleQuiz)
	s.mux.HandleFunc("POST /api/quiz/submit", s.handleSubmit)
	s.mux.HandleFunc("GET /api/preferences/dark-mode", s.handleGetDarkMode)
	s.mux.HandleFunc("PUT /api/preferences/dark-mode", s.handleSetDarkMode)
	s.mux.HandleFunc("POST /api/preferences/dark-mode/toggle", s.handleToggleDarkMode)
	s.mux.HandleFunc("GET /api/report", s.handleReport)
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// ServeHTTP assigns a profile to the request, then dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r = withProfile(w, r)
	s.mux.ServeHTTP(w, r)
	slog.Debug("request",
		"method", r.Method,
		"path", r.URL.Path,
		"profile", profileFrom(r.Context()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, profileFrom(r.Context()))
}
