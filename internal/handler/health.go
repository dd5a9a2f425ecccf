package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/NATPAC-Sanchara/trips/spec"
)

// readyTimeout bounds the readiness probe's database ping so a wedged pool
// turns into a fast 503 instead of a hanging probe.
const readyTimeout = 2 * time.Second

// handleHealth handles GET /healthz. It reports 200 whenever the process is
// up; it deliberately checks nothing else, so orchestrators can tell "process
// dead" apart from "dependency down".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles GET /readyz. It pings the database and reports 503
// until the pool can reach Postgres, which keeps traffic away during startup
// and failovers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpenAPI serves the embedded API specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
