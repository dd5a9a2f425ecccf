package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/repo"
)

// EventService implements business logic for the trip event log.
// Events append to open and closed trips alike: surveys and detectors
// annotate trips after they end.
type EventService struct {
	trips  repo.TripRepo
	events repo.EventRepo
}

// NewEventService constructs an EventService backed by the provided repos.
func NewEventService(trips repo.TripRepo, events repo.EventRepo) *EventService {
	return &EventService{trips: trips, events: events}
}

// Append stores a new event on the caller's trip.
// Returns domain.ErrValidation for a malformed event, domain.ErrNotFound if
// the trip does not exist for the caller.
func (s *EventService) Append(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.EventInput) (domain.TripEvent, error) {
	if err := validateInput(in); err != nil {
		return domain.TripEvent{}, err
	}
	if _, err := s.trips.GetByID(ctx, who.UserID, tripID); err != nil {
		return domain.TripEvent{}, fmt.Errorf("service.EventService.Append: %w", err)
	}

	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	result, err := s.events.Append(ctx, domain.TripEvent{
		TripID:  tripID,
		Type:    in.Type,
		Payload: payload,
	})
	if err != nil {
		return domain.TripEvent{}, fmt.Errorf("service.EventService.Append: %w", err)
	}
	return result, nil
}

// ListByTrip returns one page of the trip's events in append order, plus the
// total count for page metadata. Always returns a non-nil slice.
func (s *EventService) ListByTrip(ctx context.Context, who domain.Identity, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, int64, error) {
	if _, err := s.trips.GetByID(ctx, who.UserID, tripID); err != nil {
		return nil, 0, fmt.Errorf("service.EventService.ListByTrip: %w", err)
	}
	events, err := s.events.ListByTrip(ctx, tripID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.EventService.ListByTrip: %w", err)
	}
	total, err := s.events.CountByTrip(ctx, tripID)
	if err != nil {
		return nil, 0, fmt.Errorf("service.EventService.ListByTrip: %w", err)
	}
	if events == nil {
		events = []domain.TripEvent{}
	}
	return events, total, nil
}
