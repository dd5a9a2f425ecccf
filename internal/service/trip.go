// Package service contains the business logic for the Sanchara trips API.
// Services validate inputs, enforce business rules, and orchestrate repo
// calls. No SQL lives here — services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/geo"
	"github.com/NATPAC-Sanchara/trips/internal/repo"
	"github.com/NATPAC-Sanchara/trips/internal/secure"
)

// validate is the shared input validator; the struct tags on the domain
// input types define the rules.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs tag validation and folds failures into
// domain.ErrValidation so handlers can map them uniformly.
func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	return nil
}

// pairedCoords rejects a half-specified coordinate pair.
func pairedCoords(lat, lng *float64, what string) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("%w: %s lat and lng must be provided together", domain.ErrValidation, what)
	}
	return nil
}

// TripDetail is the read model for a single trip: the stored row, its points
// in recording order, and the aggregates recomputed from them. The stored
// distance/duration caches are never consulted here.
type TripDetail struct {
	Trip            domain.Trip
	DestAddress     string
	Points          []domain.TripPoint
	DistanceMeters  float64
	DistanceByMode  map[string]float64
	DurationSeconds *float64
	AvgSpeedMps     *float64
}

// TripService implements business logic for the trip lifecycle.
// It holds the points repo because stopping a trip and rendering its detail
// both recompute distance from the trip's point set.
type TripService struct {
	trips  repo.TripRepo
	points repo.PointRepo
	box    *secure.Box
}

// NewTripService constructs a TripService backed by the provided repos and
// the sealing box for destination addresses.
func NewTripService(trips repo.TripRepo, points repo.PointRepo, box *secure.Box) *TripService {
	return &TripService{trips: trips, points: points, box: box}
}

// Start opens a new trip for the caller. Any previously open trip of the
// same owner is closed in the same transaction; the closed trip is returned
// alongside the created one so the handler can report what happened.
// Returns domain.ErrValidation if the input violates business rules.
func (s *TripService) Start(ctx context.Context, who domain.Identity, in domain.StartTripInput) (created domain.Trip, closed *domain.Trip, err error) {
	if err := validateInput(in); err != nil {
		return domain.Trip{}, nil, err
	}
	if err := pairedCoords(in.Lat, in.Lng, "start"); err != nil {
		return domain.Trip{}, nil, err
	}
	if err := pairedCoords(in.DestLat, in.DestLng, "destination"); err != nil {
		return domain.Trip{}, nil, err
	}

	startedAt := time.Now().UTC()
	if in.Timestamp != nil {
		startedAt = in.Timestamp.UTC()
	}

	destEnc, err := s.box.Seal(in.DestAddress)
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("service.TripService.Start: seal destination: %w", err)
	}

	trip := domain.Trip{
		OwnerID:        who.UserID,
		DeviceID:       in.DeviceID,
		StartedAt:      startedAt,
		StartLat:       in.Lat,
		StartLng:       in.Lng,
		Modes:          in.Modes,
		Companions:     in.Companions,
		Metadata:       in.Metadata,
		DestLat:        in.DestLat,
		DestLng:        in.DestLng,
		DestAddressEnc: destEnc,
	}
	if trip.Modes == nil {
		trip.Modes = []string{}
	}
	if trip.Companions == nil {
		trip.Companions = []domain.Companion{}
	}
	if trip.Metadata == nil {
		trip.Metadata = map[string]any{}
	}

	created, closed, err = s.trips.Start(ctx, trip)
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("service.TripService.Start: %w", err)
	}
	return created, closed, nil
}

// GetDetail returns one trip with its points and the derived aggregates.
// Returns domain.ErrNotFound if the trip does not exist for the caller.
func (s *TripService) GetDetail(ctx context.Context, who domain.Identity, tripID uuid.UUID) (TripDetail, error) {
	t, err := s.trips.GetByID(ctx, who.UserID, tripID)
	if err != nil {
		return TripDetail{}, fmt.Errorf("service.TripService.GetDetail: %w", err)
	}
	points, err := s.points.ListByTrip(ctx, tripID)
	if err != nil {
		return TripDetail{}, fmt.Errorf("service.TripService.GetDetail: %w", err)
	}
	detail, err := s.assembleDetail(t, points)
	if err != nil {
		return TripDetail{}, fmt.Errorf("service.TripService.GetDetail: %w", err)
	}
	return detail, nil
}

// List returns one page of the caller's trips, newest first, plus the total
// count for page metadata. Always returns a non-nil slice.
func (s *TripService) List(ctx context.Context, who domain.Identity, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, err := s.trips.ListByOwner(ctx, who.UserID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}
	total, err := s.trips.CountByOwner(ctx, who.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// Update applies a partial update to the caller's open trip.
// Returns domain.ErrValidation for invalid input, domain.ErrNotFound if the
// trip does not exist for the caller, domain.ErrInvalidState if it is
// already closed.
func (s *TripService) Update(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.UpdateTripInput) (domain.Trip, error) {
	if err := validateInput(in); err != nil {
		return domain.Trip{}, err
	}

	upd := repo.TripUpdate{
		DeviceID: in.DeviceID,
		Metadata: in.Metadata,
		DestLat:  in.DestLat,
		DestLng:  in.DestLng,
	}
	if in.Modes != nil {
		modes := *in.Modes
		if modes == nil {
			modes = []string{}
		}
		upd.Modes = &modes
	}
	if in.Companions != nil {
		companions := *in.Companions
		if companions == nil {
			companions = []domain.Companion{}
		}
		upd.Companions = &companions
	}
	if in.DestAddress != nil {
		enc, err := s.box.Seal(*in.DestAddress)
		if err != nil {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: seal destination: %w", err)
		}
		upd.SetDestAddress = true
		upd.DestAddressEnc = enc
	}

	result, err := s.trips.Update(ctx, who.UserID, tripID, upd)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Stop closes the caller's open trip, recording the optional end fix and the
// distance computed from the trip's points. The close happens exactly once:
// a second Stop returns domain.ErrInvalidState.
func (s *TripService) Stop(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.StopTripInput) (domain.Trip, error) {
	if err := validateInput(in); err != nil {
		return domain.Trip{}, err
	}
	if err := pairedCoords(in.Lat, in.Lng, "end"); err != nil {
		return domain.Trip{}, err
	}

	t, err := s.trips.GetByID(ctx, who.UserID, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Stop: %w", err)
	}
	if !t.Open() {
		return domain.Trip{}, fmt.Errorf("service.TripService.Stop: %w", domain.ErrInvalidState)
	}

	points, err := s.points.ListByTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Stop: %w", err)
	}

	endedAt := time.Now().UTC()
	if in.Timestamp != nil {
		endedAt = in.Timestamp.UTC()
	}

	closed, err := s.trips.Stop(ctx, who.UserID, tripID, repo.TripStop{
		EndedAt:   endedAt,
		EndLat:    in.Lat,
		EndLng:    in.Lng,
		DistanceM: geo.Summarize(points).TotalMeters,
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Stop: %w", err)
	}
	return closed, nil
}

// assembleDetail computes the derived view for a trip from its point set.
func (s *TripService) assembleDetail(t domain.Trip, points []domain.TripPoint) (TripDetail, error) {
	destAddr, err := s.box.Open(t.DestAddressEnc)
	if err != nil {
		return TripDetail{}, fmt.Errorf("open destination address: %w", err)
	}
	if points == nil {
		points = []domain.TripPoint{}
	}

	sum := geo.Summarize(points)
	duration := geo.Duration(t)

	return TripDetail{
		Trip:            t,
		DestAddress:     destAddr,
		Points:          points,
		DistanceMeters:  sum.TotalMeters,
		DistanceByMode:  sum.ByMode,
		DurationSeconds: duration,
		AvgSpeedMps:     geo.AvgSpeed(sum.TotalMeters, duration),
	}, nil
}
