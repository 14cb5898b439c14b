package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/storage"
)

// Server exposes archived run summaries and live progress as a JSON API.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	archive   storage.Interface
	tracker   *Tracker
	logger    *logrus.Logger
	port      int
	authToken string
}

// Config holds the server's listen and auth settings.
type Config struct {
	Port      int
	AuthToken string
}

// NewServer wires the routes over the archive and tracker.
func NewServer(cfg Config, archive storage.Interface, tracker *Tracker, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		archive:   archive,
		tracker:   tracker,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Get("/api/runs/{id}/equity", s.handleGetEquity)
	s.router.Get("/api/runs/{id}/trades", s.handleGetTrades)
	s.router.Get("/api/runs/{id}/progress", s.handleGetProgress)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleListRuns merges live runs with the archive listing.
func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	type listing struct {
		Live     []RunState        `json:"live"`
		Archived []storage.RunInfo `json:"archived"`
	}
	s.writeJSON(w, listing{
		Live:     s.tracker.List(),
		Archived: s.archive.ListRuns(),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, found := s.archive.GetSummary(id)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, summary)
}

func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, found := s.archive.GetSummary(id)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, summary.Equity)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, found := s.archive.GetSummary(id)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, summary.TradeLog)
}

// handleGetProgress answers for live runs first, then falls back to the
// archive so finished runs report 100.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if state, ok := s.tracker.Get(id); ok {
		s.writeJSON(w, state)
		return
	}
	if s.archive.HasRun(id) {
		s.writeJSON(w, RunState{ID: id, Status: StatusCompleted, Percent: 100})
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
