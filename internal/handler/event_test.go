package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

func TestAppendEvent_created(t *testing.T) {
	who := userIdentity()
	tripID := uuid.New()
	stored := domain.TripEvent{
		ID:        uuid.New(),
		TripID:    tripID,
		Type:      "mode_change",
		Payload:   map[string]any{"from": "walk", "to": "bus"},
		CreatedAt: time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC),
	}

	events := &mockEventServicer{
		appendFn: func(_ context.Context, got domain.Identity, id uuid.UUID, in domain.EventInput) (domain.TripEvent, error) {
			assert.Equal(t, who, got)
			assert.Equal(t, tripID, id)
			assert.Equal(t, "mode_change", in.Type)
			return stored, nil
		},
	}
	h := newHTTPHandler(deps{events: events})

	rec := do(h, authedRequest(t, who, http.MethodPost, "/trips/"+tripID.String()+"/events", map[string]any{
		"type":    "mode_change",
		"payload": map[string]any{"from": "walk", "to": "bus"},
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, stored.ID.String(), body["id"])
	assert.Equal(t, "mode_change", body["type"])
	assert.Equal(t, map[string]any{"from": "walk", "to": "bus"}, body["payload"])
}

func TestAppendEvent_missingType(t *testing.T) {
	who := userIdentity()
	events := &mockEventServicer{
		appendFn: func(context.Context, domain.Identity, uuid.UUID, domain.EventInput) (domain.TripEvent, error) {
			return domain.TripEvent{}, fmt.Errorf("%w: Type is required", domain.ErrValidation)
		},
	}
	h := newHTTPHandler(deps{events: events})

	rec := do(h, authedRequest(t, who, http.MethodPost, "/trips/"+uuid.NewString()+"/events", map[string]any{}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestAppendEvent_tripNotFound(t *testing.T) {
	who := userIdentity()
	events := &mockEventServicer{
		appendFn: func(context.Context, domain.Identity, uuid.UUID, domain.EventInput) (domain.TripEvent, error) {
			return domain.TripEvent{}, fmt.Errorf("service.EventService.Append: %w", domain.ErrNotFound)
		},
	}
	h := newHTTPHandler(deps{events: events})

	rec := do(h, authedRequest(t, who, http.MethodPost, "/trips/"+uuid.NewString()+"/events", map[string]any{
		"type": "note",
	}))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestListEvents_appendOrder(t *testing.T) {
	who := userIdentity()
	tripID := uuid.New()
	first := domain.TripEvent{ID: uuid.New(), TripID: tripID, Type: "start", Payload: map[string]any{}}
	second := domain.TripEvent{ID: uuid.New(), TripID: tripID, Type: "note", Payload: map[string]any{}}

	events := &mockEventServicer{
		listByTrip: func(_ context.Context, _ domain.Identity, id uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, int64, error) {
			assert.Equal(t, tripID, id)
			return []domain.TripEvent{first, second}, 2, nil
		},
	}
	h := newHTTPHandler(deps{events: events})

	rec := do(h, authedRequest(t, who, http.MethodGet, "/trips/"+tripID.String()+"/events", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	got0, _ := data[0].(map[string]any)
	got1, _ := data[1].(map[string]any)
	assert.Equal(t, first.ID.String(), got0["id"])
	assert.Equal(t, second.ID.String(), got1["id"])
}
