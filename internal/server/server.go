// Package server provides the HTTP surface for the Hanvas hand-tracking demo.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/render"
	"github.com/rrocketmann/Hanvas/internal/scheduler"
	"github.com/rrocketmann/Hanvas/internal/server/api"
	"github.com/rrocketmann/Hanvas/internal/session"
	"github.com/rrocketmann/Hanvas/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Session    *session.Controller
	Scheduler  *scheduler.Scheduler
	Classifier *gesture.Classifier
	Style      render.Style
	Hub        *StateHub
}

// Server is the HTTP server for the Hanvas application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Session != nil {
		s.mux.HandleFunc("/api/session", s.handleSession)
		s.mux.HandleFunc("/api/session/toggle", s.handleToggle)
	}

	if s.config.Store != nil && s.config.Classifier != nil {
		settingsHandler := api.NewSettingsHandler(s.config.Store, s.config.Classifier)
		s.mux.Handle("/api/settings", settingsHandler)
	}

	if s.config.Scheduler != nil {
		streamHandler := NewStreamHandler(s.config.Scheduler, s.config.Style)
		s.mux.Handle("/api/stream", streamHandler)
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/state/ws", s.config.Hub)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	})
}

// handleSession handles GET requests to /api/session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"session_state": string(s.config.Session.State()),
	}
	if s.config.Scheduler != nil {
		response["hand_state"] = string(s.config.Scheduler.LastState())
		response["scheduler_state"] = string(s.config.Scheduler.State())
	}

	writeJSON(w, response)
}

// handleToggle handles POST requests to /api/session/toggle. The execution
// context is derived from the request: only secure, non-embedded origins may
// start a capture session.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	env := session.RequestEnvironment(r)
	if err := s.config.Session.Toggle(r.Context(), env); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrInsecureContext), errors.Is(err, session.ErrEmbeddedFrame):
			status = http.StatusForbidden
		case errors.Is(err, session.ErrBusy):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, map[string]interface{}{
		"session_state": string(s.config.Session.State()),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
