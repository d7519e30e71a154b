package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"blackbox-backend/internal/analytics"
	"blackbox-backend/internal/chat"
	"blackbox-backend/internal/settings"
	"blackbox-backend/internal/tasks"
)

// Deps are the route groups served under /api.
type Deps struct {
	Tasks     *tasks.TaskHandler
	Chat      *chat.ChatHandler
	Settings  *settings.Handler
	Analytics *analytics.Handler
}

// Server is the dashboard API server.
type Server struct {
	httpServer *http.Server
	deps       Deps
}

func New(addr string, allowedOrigins []string, deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", deps.Tasks.Mount)
		r.Route("/chat", deps.Chat.Mount)
		r.Route("/settings", deps.Settings.Mount)
		r.Route("/analytics", func(r chi.Router) {
			deps.Analytics.Mount(r)
			r.Get("/summary", s.handleSummary)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			"X-Platform", "X-App-Version", "X-Device-Locale", "X-Session-Id",
			"Idempotency-Key", "X-Source-Event-Key",
		},
		ExposedHeaders:   []string{"X-AI-Error"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: c.Handler(r),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("blackbox API listening", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects websocket subscribers and drains open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Analytics != nil && s.deps.Analytics.Hub != nil {
		s.deps.Analytics.Hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

// handleSummary feeds the dashboard home cards.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tasks":    s.deps.Tasks.Store.Stats(),
		"messages": s.deps.Chat.Store.Len(),
		"metrics":  s.deps.Analytics.Sampler.Latest(),
	})
}
