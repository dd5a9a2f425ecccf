package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

const eventColumns = `id, trip_id, event_type, payload, created_at`

// EventRepo defines the persistence operations for trip events. Unlike
// points, events append to closed trips too: surveys and post-processing
// annotate trips after the fact.
type EventRepo interface {
	// Append stores a new event for the trip. Returns domain.ErrNotFound
	// when the trip does not exist.
	Append(ctx context.Context, event domain.TripEvent) (domain.TripEvent, error)

	// ListByTrip returns one page of a trip's events in append order.
	ListByTrip(ctx context.Context, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, error)

	// CountByTrip returns the trip's total event count for page metadata.
	CountByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

// pgEventRepo is the Postgres implementation of EventRepo.
type pgEventRepo struct {
	db db
}

// NewEventRepo constructs an EventRepo backed by the provided db connection.
func NewEventRepo(db db) EventRepo {
	return &pgEventRepo{db: db}
}

// Append inserts an event. The WHERE EXISTS guard keeps orphan events out
// when the trip was deleted between the ownership check and the insert.
func (r *pgEventRepo) Append(ctx context.Context, event domain.TripEvent) (domain.TripEvent, error) {
	const q = `
		INSERT INTO trip_events (trip_id, event_type, payload)
		SELECT @trip_id, @event_type, @payload
		WHERE EXISTS (SELECT 1 FROM trips WHERE id = @trip_id)
		RETURNING ` + eventColumns

	args := pgx.NamedArgs{
		"trip_id":    event.TripID,
		"event_type": event.Type,
		"payload":    event.Payload,
	}

	result, err := scanEvent(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripEvent{}, fmt.Errorf("repo.EventRepo.Append: %w", err)
	}
	return result, nil
}

// ListByTrip returns one page of events ordered oldest first. The id
// tiebreak keeps the order stable when two events share a timestamp.
func (r *pgEventRepo) ListByTrip(ctx context.Context, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM trip_events
		WHERE trip_id = @trip_id
		ORDER BY created_at ASC, id ASC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{"trip_id": tripID, "limit": p.Limit, "offset": p.Offset()}

	events := []domain.TripEvent{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, args)
		if err != nil {
			return err
		}
		defer rows.Close()

		events = events[:0]
		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			events = append(events, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.EventRepo.ListByTrip: %w", err)
	}
	return events, nil
}

// CountByTrip returns the total number of events stored for a trip.
func (r *pgEventRepo) CountByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const q = `SELECT count(*) FROM trip_events WHERE trip_id = @trip_id`

	var n int64
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID}).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("repo.EventRepo.CountByTrip: %w", err)
	}
	return n, nil
}

// scanEvent maps a single database row into a domain.TripEvent.
func scanEvent(s scanner) (domain.TripEvent, error) {
	var (
		e      domain.TripEvent
		id     pgtype.UUID
		tripID pgtype.UUID
	)

	err := s.Scan(&id, &tripID, &e.Type, &e.Payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripEvent{}, domain.ErrNotFound
		}
		return domain.TripEvent{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.TripID = uuid.UUID(tripID.Bytes)
	return e, nil
}
