package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// eventResponse is the wire shape of one trip annotation.
type eventResponse struct {
	ID        uuid.UUID      `json:"id"`
	TripID    uuid.UUID      `json:"tripId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// handleAppendEvent handles POST /trips/{tripID}/events. Events append to
// open and closed trips alike.
func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
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

	var in domain.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := s.events.Append(r.Context(), who, tripID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.EventsAppended.Inc()
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

// handleListEvents handles GET /trips/{tripID}/events, oldest first.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
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

	params := paginationParams(r)
	events, total, err := s.events.ListByTrip(r.Context(), who, tripID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]eventResponse, len(events))
	for i, ev := range events {
		data[i] = toEventResponse(ev)
	}
	writeJSON(w, http.StatusOK, struct {
		Data       []eventResponse `json:"data"`
		Pagination pagination      `json:"pagination"`
	}{
		Data:       data,
		Pagination: pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

func toEventResponse(ev domain.TripEvent) eventResponse {
	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return eventResponse{
		ID:        ev.ID,
		TripID:    ev.TripID,
		Type:      ev.Type,
		Payload:   payload,
		CreatedAt: ev.CreatedAt,
	}
}
