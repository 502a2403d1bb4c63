package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", s.handleListChannels)
			r.Get("/{id}", s.handleGetChannel)
		})

		r.Get("/forward-log", s.handleListForwardLog)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns forwarding status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !s.status.Running() {
		status = "stopped"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"version":           s.version,
		"running":           s.status.Running(),
		"sources_wired":     s.status.WiredSources(),
		"websocket_clients": s.hub.ClientCount(),
	})
}
