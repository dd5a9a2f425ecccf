package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/service"
)

// tripResponse is the wire shape of a trip. The sealed destination address is
// never serialized; the detail view carries the decrypted value instead.
type tripResponse struct {
	ID         uuid.UUID          `json:"id"`
	OwnerID    uuid.UUID          `json:"ownerId"`
	DeviceID   string             `json:"deviceId,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	EndedAt    *time.Time         `json:"endedAt,omitempty"`
	StartLat   *float64           `json:"startLat,omitempty"`
	StartLng   *float64           `json:"startLng,omitempty"`
	EndLat     *float64           `json:"endLat,omitempty"`
	EndLng     *float64           `json:"endLng,omitempty"`
	Modes      []string           `json:"modes"`
	Companions []domain.Companion `json:"companions"`
	Metadata   map[string]any     `json:"metadata"`
	DestLat    *float64           `json:"destLat,omitempty"`
	DestLng    *float64           `json:"destLng,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// startTripResponse adds the id of the trip that was force-closed by this
// start, when one was still open.
type startTripResponse struct {
	tripResponse
	AutoClosedTripID *uuid.UUID `json:"autoClosedTripId,omitempty"`
}

// tripDetailResponse is the read model for GET /trips/{tripID}: the trip with
// its aggregates recomputed from the point set, plus the points themselves.
type tripDetailResponse struct {
	Trip   tripDetailBody  `json:"trip"`
	Points []pointResponse `json:"points"`
}

type tripDetailBody struct {
	tripResponse
	DestAddress     string             `json:"destAddress,omitempty"`
	DistanceMeters  float64            `json:"distanceMeters"`
	DurationSeconds *float64           `json:"durationSeconds"`
	AverageSpeedMps *float64           `json:"averageSpeedMps"`
	DistanceByMode  map[string]float64 `json:"distanceByMode"`
}

// pagination is the page metadata attached to every list response.
type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// handleStartTrip handles POST /trips/start. The whole body is optional: a
// client that knows nothing yet may open a bare trip and fill it in later.
func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in domain.StartTripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	created, closed, err := s.trips.Start(r.Context(), who, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.TripsStarted.Inc()
	resp := startTripResponse{tripResponse: toTripResponse(created)}
	if closed != nil {
		s.metrics.TripsAutoClosed.Inc()
		id := closed.ID
		resp.AutoClosedTripID = &id
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	who, err := identityFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := paginationParams(r)
	trips, total, err := s.trips.List(r.Context(), who, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]tripResponse, len(trips))
	for i, t := range trips {
		data[i] = toTripResponse(t)
	}
	writeJSON(w, http.StatusOK, struct {
		Data       []tripResponse `json:"data"`
		Pagination pagination     `json:"pagination"`
	}{
		Data:       data,
		Pagination: pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// handleGetTrip handles GET /trips/{tripID}.
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
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

	started := time.Now()
	detail, err := s.trips.GetDetail(r.Context(), who, tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.AggregateDuration.WithLabelValues("trip_detail").Observe(time.Since(started).Seconds())

	writeJSON(w, http.StatusOK, toTripDetailResponse(detail))
}

// handleUpdateTrip handles PATCH /trips/{tripID}. Only open trips accept
// updates; absent fields are left unchanged.
func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
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

	var in domain.UpdateTripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.trips.Update(r.Context(), who, tripID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTripResponse(updated))
}

// handleStopTrip handles POST /trips/{tripID}/stop.
func (s *Server) handleStopTrip(w http.ResponseWriter, r *http.Request) {
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

	var in domain.StopTripInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	stopped, err := s.trips.Stop(r.Context(), who, tripID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.TripsStopped.Inc()
	writeJSON(w, http.StatusOK, toTripResponse(stopped))
}

// --- mapping helpers --------------------------------------------------------

func toTripResponse(t domain.Trip) tripResponse {
	resp := tripResponse{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		DeviceID:   t.DeviceID,
		StartedAt:  t.StartedAt,
		EndedAt:    t.EndedAt,
		StartLat:   t.StartLat,
		StartLng:   t.StartLng,
		EndLat:     t.EndLat,
		EndLng:     t.EndLng,
		Modes:      t.Modes,
		Companions: t.Companions,
		Metadata:   t.Metadata,
		DestLat:    t.DestLat,
		DestLng:    t.DestLng,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	// null never appears where the client sent an empty collection.
	if resp.Modes == nil {
		resp.Modes = []string{}
	}
	if resp.Companions == nil {
		resp.Companions = []domain.Companion{}
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	return resp
}

func toTripDetailResponse(d service.TripDetail) tripDetailResponse {
	points := make([]pointResponse, len(d.Points))
	for i, p := range d.Points {
		points[i] = toPointResponse(p)
	}
	byMode := d.DistanceByMode
	if byMode == nil {
		byMode = map[string]float64{}
	}
	return tripDetailResponse{
		Trip: tripDetailBody{
			tripResponse:    toTripResponse(d.Trip),
			DestAddress:     d.DestAddress,
			DistanceMeters:  d.DistanceMeters,
			DurationSeconds: d.DurationSeconds,
			AverageSpeedMps: d.AvgSpeedMps,
			DistanceByMode:  byMode,
		},
		Points: points,
	}
}
