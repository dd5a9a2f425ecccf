package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/repo"
)

// PointService implements business logic for location ingestion.
// It holds the trips repo because every ingest is gated on the caller
// owning an open trip.
type PointService struct {
	trips  repo.TripRepo
	points repo.PointRepo
}

// NewPointService constructs a PointService backed by the provided repos.
func NewPointService(trips repo.TripRepo, points repo.PointRepo) *PointService {
	return &PointService{trips: trips, points: points}
}

// IngestOne appends a single point to the caller's open trip. A replayed
// client id returns the originally stored point with inserted=false.
// Returns domain.ErrValidation for a malformed point, domain.ErrNotFound if
// the trip does not exist for the caller, domain.ErrInvalidState if it is
// already closed.
func (s *PointService) IngestOne(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.PointInput) (domain.TripPoint, bool, error) {
	if err := validateInput(in); err != nil {
		return domain.TripPoint{}, false, err
	}

	t, err := s.trips.GetByID(ctx, who.UserID, tripID)
	if err != nil {
		return domain.TripPoint{}, false, fmt.Errorf("service.PointService.IngestOne: %w", err)
	}
	if !t.Open() {
		return domain.TripPoint{}, false, fmt.Errorf("service.PointService.IngestOne: %w", domain.ErrInvalidState)
	}

	p, inserted, err := s.points.InsertOne(ctx, buildPoint(tripID, in))
	if err != nil {
		return domain.TripPoint{}, false, fmt.Errorf("service.PointService.IngestOne: %w", err)
	}
	return p, inserted, nil
}

// IngestBatch appends up to domain.MaxBatchPoints points to the caller's
// open trip and returns how many were actually written. Points whose client
// id is already stored, or repeated within the batch, are skipped silently,
// so replaying a whole batch reports 0. Same error contract as IngestOne;
// an invalid point fails the entire batch before anything is written.
func (s *PointService) IngestBatch(ctx context.Context, who domain.Identity, tripID uuid.UUID, inputs []domain.PointInput) (int64, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: batch must contain at least one point", domain.ErrValidation)
	}
	if len(inputs) > domain.MaxBatchPoints {
		return 0, fmt.Errorf("%w: batch exceeds %d points", domain.ErrValidation, domain.MaxBatchPoints)
	}
	for i, in := range inputs {
		if err := validateInput(in); err != nil {
			return 0, fmt.Errorf("point %d: %w", i, err)
		}
	}

	t, err := s.trips.GetByID(ctx, who.UserID, tripID)
	if err != nil {
		return 0, fmt.Errorf("service.PointService.IngestBatch: %w", err)
	}
	if !t.Open() {
		return 0, fmt.Errorf("service.PointService.IngestBatch: %w", domain.ErrInvalidState)
	}

	points := make([]domain.TripPoint, len(inputs))
	for i, in := range inputs {
		points[i] = buildPoint(tripID, in)
	}

	inserted, err := s.points.InsertBatch(ctx, tripID, points)
	if err != nil {
		return 0, fmt.Errorf("service.PointService.IngestBatch: %w", err)
	}
	return inserted, nil
}

// buildPoint maps a validated input onto the stored shape, defaulting the
// timestamp to the server clock.
func buildPoint(tripID uuid.UUID, in domain.PointInput) domain.TripPoint {
	recordedAt := time.Now().UTC()
	if in.Timestamp != nil {
		recordedAt = in.Timestamp.UTC()
	}
	return domain.TripPoint{
		TripID:     tripID,
		ClientID:   in.ClientID,
		RecordedAt: recordedAt,
		Lat:        *in.Lat,
		Lng:        *in.Lng,
		Mode:       in.Mode,
		SpeedMps:   in.SpeedMps,
		AccuracyM:  in.AccuracyM,
		HeadingDeg: in.HeadingDeg,
	}
}
