package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// pointResponse is the wire shape of one stored GPS fix.
type pointResponse struct {
	ID         int64     `json:"id"`
	TripID     uuid.UUID `json:"tripId"`
	ClientID   string    `json:"clientId,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Mode       string    `json:"mode,omitempty"`
	SpeedMps   *float64  `json:"speedMps,omitempty"`
	AccuracyM  *float64  `json:"accuracyM,omitempty"`
	HeadingDeg *float64  `json:"headingDeg,omitempty"`
}

// batchRequest is the body of POST /trips/{tripID}/points/batch.
type batchRequest struct {
	Points []domain.PointInput `json:"points"`
}

// handleIngestPoint handles POST /trips/{tripID}/points. A replayed client id
// answers 200 with the originally stored row instead of 201, so clients can
// retry a lost response without creating anything.
func (s *Server) handleIngestPoint(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tripID, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in domain.PointInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, inserted, err := s.points.IngestOne(r.Context(), who, tripID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if inserted {
		s.metrics.PointsInserted.Inc()
	} else {
		s.metrics.PointsDeduped.Inc()
		status = http.StatusOK
	}
	writeJSON(w, status, toPointResponse(p))
}

// handleIngestPointBatch handles POST /trips/{tripID}/points/batch.
// The response counts only rows actually written; duplicates are dropped
// silently, so resubmitting a whole batch after a network failure is safe
// and reports inserted=0.
func (s *Server) handleIngestPointBatch(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tripID, err := tripIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body batchRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	inserted, err := s.points.IngestBatch(r.Context(), who, tripID, body.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.BatchSize.Observe(float64(len(body.Points)))
	s.metrics.PointsInserted.Add(float64(inserted))
	s.metrics.PointsDeduped.Add(float64(int64(len(body.Points)) - inserted))

	writeJSON(w, http.StatusOK, struct {
		Inserted int64 `json:"inserted"`
	}{Inserted: inserted})
}

func toPointResponse(p domain.TripPoint) pointResponse {
	return pointResponse{
		ID:         p.ID,
		TripID:     p.TripID,
		ClientID:   p.ClientID,
		RecordedAt: p.RecordedAt,
		Lat:        p.Lat,
		Lng:        p.Lng,
		Mode:       p.Mode,
		SpeedMps:   p.SpeedMps,
		AccuracyM:  p.AccuracyM,
		HeadingDeg: p.HeadingDeg,
	}
}
