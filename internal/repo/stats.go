package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// StatsRepo exposes the read models behind streaks and the leaderboard.
// Distance is deliberately not aggregated in SQL: callers fetch the window's
// trips and points and run the same summarizer the trip detail view uses, so
// the two can never drift apart.
type StatsRepo interface {
	// ActiveDays returns the owner's distinct UTC calendar days with at
	// least one trip started at or after since, newest day first.
	ActiveDays(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error)

	// TripsStartedSince returns every owner's trips started at or after
	// since, open trips included.
	TripsStartedSince(ctx context.Context, since time.Time) ([]domain.Trip, error)

	// PointsForTrips returns the points of the given trips grouped by
	// trip, each group in recording order. Trips without points simply
	// have no entry in the map.
	PointsForTrips(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error)

	// OwnerIDs returns every owner that has ever recorded a trip, for the
	// full-roster leaderboard variant.
	OwnerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// pgStatsRepo is the Postgres implementation of StatsRepo.
type pgStatsRepo struct {
	db db
}

// NewStatsRepo constructs a StatsRepo backed by the provided db connection.
func NewStatsRepo(db db) StatsRepo {
	return &pgStatsRepo{db: db}
}

// ActiveDays collapses the owner's trip starts into distinct UTC days.
func (r *pgStatsRepo) ActiveDays(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error) {
	const q = `
		SELECT DISTINCT (started_at AT TIME ZONE 'UTC')::date AS day
		FROM trips
		WHERE owner_id = @owner_id AND started_at >= @since
		ORDER BY day DESC`

	args := pgx.NamedArgs{"owner_id": ownerID, "since": since}

	days := []time.Time{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, args)
		if err != nil {
			return err
		}
		defer rows.Close()

		days = days[:0]
		for rows.Next() {
			var day pgtype.Date
			if err := rows.Scan(&day); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			days = append(days, day.Time)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.StatsRepo.ActiveDays: %w", err)
	}
	return days, nil
}

// TripsStartedSince returns the cross-owner trip window for the leaderboard.
func (r *pgStatsRepo) TripsStartedSince(ctx context.Context, since time.Time) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE started_at >= @since
		ORDER BY started_at ASC`

	trips := []domain.Trip{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"since": since})
		if err != nil {
			return err
		}
		defer rows.Close()

		trips = trips[:0]
		for rows.Next() {
			t, err := scanTrip(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			trips = append(trips, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.StatsRepo.TripsStartedSince: %w", err)
	}
	return trips, nil
}

// PointsForTrips loads the points of many trips in one query.
func (r *pgStatsRepo) PointsForTrips(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error) {
	byTrip := map[uuid.UUID][]domain.TripPoint{}
	if len(tripIDs) == 0 {
		return byTrip, nil
	}

	const q = `
		SELECT ` + pointColumns + `
		FROM trip_points
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY trip_id, recorded_at ASC, id ASC`

	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": tripIDs})
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(byTrip)
		for rows.Next() {
			p, err := scanPoint(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			byTrip[p.TripID] = append(byTrip[p.TripID], p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.StatsRepo.PointsForTrips: %w", err)
	}
	return byTrip, nil
}

// OwnerIDs returns every distinct trip owner.
func (r *pgStatsRepo) OwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	const q = `SELECT DISTINCT owner_id FROM trips ORDER BY owner_id`

	owners := []uuid.UUID{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		owners = owners[:0]
		for rows.Next() {
			var id pgtype.UUID
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			owners = append(owners, uuid.UUID(id.Bytes))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.StatsRepo.OwnerIDs: %w", err)
	}
	return owners, nil
}
