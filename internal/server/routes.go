package server

import (
	"net/http"
	"time"
)

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/healthz", s.health)
	r.Get("/status", s.status)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.bus != nil {
		r.Get("/event", s.events)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Info
	Started time.Time `json:"started"`
	Uptime  string    `json:"uptime"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Info:    s.info,
		Started: s.started.UTC(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}
