package handler

import (
	"net/http"
	"time"
)

// handleStreak handles GET /stats/streak for the calling user.
func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	started := time.Now()
	streak, err := s.stats.Streak(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.AggregateDuration.WithLabelValues("streak").Observe(time.Since(started).Seconds())

	writeJSON(w, http.StatusOK, streak)
}

// handleLeaderboard handles GET /stats/leaderboard. ?roster=full asks for
// every owner ever seen, zero-distance rows included; the service rejects
// that variant for non-admin callers.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fullRoster := r.URL.Query().Get("roster") == "full"
	started := time.Now()
	entries, err := s.stats.WeeklyLeaderboard(r.Context(), who, fullRoster)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.AggregateDuration.WithLabelValues("leaderboard").Observe(time.Since(started).Seconds())

	writeJSON(w, http.StatusOK, entries)
}
