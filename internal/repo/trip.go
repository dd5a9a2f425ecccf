// Package repo contains all database access logic for the Sanchara trips API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// tripColumns is the full column list shared by every trip query so that
// scanTrip always sees the same shape.
const tripColumns = `id, owner_id, device_id, started_at, ended_at,
	start_lat, start_lng, end_lat, end_lng,
	modes, companions, metadata,
	dest_lat, dest_lng, dest_address_enc,
	distance_m, duration_s, created_at, updated_at`

// TripUpdate carries the mutable trip fields for a partial update. Nil
// pointers leave the column untouched. The destination address is already
// sealed by the caller; SetDestAddress distinguishes "replace with these
// bytes" (possibly nil, clearing it) from "leave alone".
type TripUpdate struct {
	DeviceID       *string
	Modes          *[]string
	Companions     *[]domain.Companion
	Metadata       map[string]any // nil means unchanged
	DestLat        *float64
	DestLng        *float64
	SetDestAddress bool
	DestAddressEnc []byte
}

// TripStop carries the closing fix for a trip. DistanceM is the distance
// cache value computed by the caller from the trip's points; the duration
// cache is derived in SQL from the effective end timestamp.
type TripStop struct {
	EndedAt   time.Time
	EndLat    *float64
	EndLng    *float64
	DistanceM float64
}

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
//
// Every read and write is scoped by ownerID: rows belonging to other owners
// are indistinguishable from missing rows.
type TripRepo interface {
	// Start inserts a new trip and, in the same transaction, closes the
	// owner's previously open trip if one exists. The closed trip (with
	// its ended_at set) is returned alongside the created one, or nil when
	// nothing was open.
	Start(ctx context.Context, trip domain.Trip) (created domain.Trip, closed *domain.Trip, err error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists for the owner.
	GetByID(ctx context.Context, ownerID, tripID uuid.UUID) (domain.Trip, error)

	// ListByOwner returns one page of the owner's trips ordered by
	// started_at descending.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, error)

	// CountByOwner returns the owner's total trip count for page metadata.
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// Update applies a partial update to an open trip and returns the
	// updated record. Returns domain.ErrNotFound if the trip does not
	// exist for the owner, domain.ErrInvalidState if it is already closed.
	Update(ctx context.Context, ownerID, tripID uuid.UUID, update TripUpdate) (domain.Trip, error)

	// Stop closes an open trip, records the optional end fix and refreshes
	// the distance and duration caches. Same error contract as Update.
	Stop(ctx context.Context, ownerID, tripID uuid.UUID, stop TripStop) (domain.Trip, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db txdb
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx, whose Begin
// opens a savepoint so Start keeps working under rollback isolation.
func NewTripRepo(db txdb) TripRepo {
	return &pgTripRepo{db: db}
}

// Start closes the owner's open trip (if any) and inserts the new one in a
// single transaction. A per-owner advisory lock serializes concurrent
// starts; the partial unique index on open trips backs the invariant up.
func (r *pgTripRepo) Start(ctx context.Context, trip domain.Trip) (domain.Trip, *domain.Trip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TripRepo.Start: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Without the lock two concurrent starts could both observe no open
	// trip; one would then fail on the unique index instead of closing
	// the other's fresh trip.
	const lockQ = `SELECT pg_advisory_xact_lock(hashtextextended(@owner_id::text, 0))`
	if _, err := tx.Exec(ctx, lockQ, pgx.NamedArgs{"owner_id": trip.OwnerID}); err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TripRepo.Start: lock: %w", err)
	}

	// The closed trip never ends before it started, even when the new
	// trip's client timestamp lies in the past.
	const closeQ = `
		UPDATE trips
		SET ended_at = GREATEST(started_at, @started_at),
		    updated_at = now()
		WHERE owner_id = @owner_id AND ended_at IS NULL
		RETURNING ` + tripColumns

	var closed *domain.Trip
	row := tx.QueryRow(ctx, closeQ, pgx.NamedArgs{
		"owner_id":   trip.OwnerID,
		"started_at": trip.StartedAt,
	})
	prev, err := scanTrip(row)
	switch {
	case err == nil:
		closed = &prev
	case errors.Is(err, domain.ErrNotFound):
		// no open trip to close
	default:
		return domain.Trip{}, nil, fmt.Errorf("repo.TripRepo.Start: close previous: %w", err)
	}

	const insertQ = `
		INSERT INTO trips (owner_id, device_id, started_at, start_lat, start_lng,
		                   modes, companions, metadata, dest_lat, dest_lng, dest_address_enc)
		VALUES (@owner_id, @device_id, @started_at, @start_lat, @start_lng,
		        COALESCE(@modes, '{}'), COALESCE(@companions, '[]'), COALESCE(@metadata, '{}'),
		        @dest_lat, @dest_lng, @dest_address_enc)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"owner_id":         trip.OwnerID,
		"device_id":        trip.DeviceID,
		"started_at":       trip.StartedAt,
		"start_lat":        trip.StartLat,
		"start_lng":        trip.StartLng,
		"modes":            trip.Modes,
		"companions":       trip.Companions,
		"metadata":         trip.Metadata,
		"dest_lat":         trip.DestLat,
		"dest_lng":         trip.DestLng,
		"dest_address_enc": trip.DestAddressEnc,
	}

	created, err := scanTrip(tx.QueryRow(ctx, insertQ, args))
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TripRepo.Start: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TripRepo.Start: commit: %w", err)
	}
	return created, closed, nil
}

// GetByID retrieves a trip by primary key, scoped to the owner.
func (r *pgTripRepo) GetByID(ctx context.Context, ownerID, tripID uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id AND owner_id = @owner_id`

	var result domain.Trip
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		result, err = scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "owner_id": ownerID}))
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListByOwner returns one page of the owner's trips, most recent first.
func (r *pgTripRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE owner_id = @owner_id
		ORDER BY started_at DESC, created_at DESC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{"owner_id": ownerID, "limit": p.Limit, "offset": p.Offset()}

	trips := []domain.Trip{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, args)
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
		return nil, fmt.Errorf("repo.TripRepo.ListByOwner: %w", err)
	}
	return trips, nil
}

// CountByOwner returns the owner's total number of trips.
func (r *pgTripRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	const q = `SELECT count(*) FROM trips WHERE owner_id = @owner_id`

	var n int64
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, q, pgx.NamedArgs{"owner_id": ownerID}).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("repo.TripRepo.CountByOwner: %w", err)
	}
	return n, nil
}

// Update applies a partial update to an open trip. The guarded WHERE keeps
// closed trips immutable; a miss is classified afterwards so the caller can
// tell "gone" from "already closed".
func (r *pgTripRepo) Update(ctx context.Context, ownerID, tripID uuid.UUID, update TripUpdate) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET device_id        = CASE WHEN @set_device_id THEN @device_id ELSE device_id END,
		    modes            = CASE WHEN @set_modes THEN @modes ELSE modes END,
		    companions       = CASE WHEN @set_companions THEN @companions ELSE companions END,
		    metadata         = CASE WHEN @set_metadata THEN @metadata ELSE metadata END,
		    dest_lat         = CASE WHEN @set_dest_lat THEN @dest_lat ELSE dest_lat END,
		    dest_lng         = CASE WHEN @set_dest_lng THEN @dest_lng ELSE dest_lng END,
		    dest_address_enc = CASE WHEN @set_dest_address THEN @dest_address_enc ELSE dest_address_enc END,
		    updated_at       = now()
		WHERE id = @id AND owner_id = @owner_id AND ended_at IS NULL
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":               tripID,
		"owner_id":         ownerID,
		"set_device_id":    update.DeviceID != nil,
		"device_id":        update.DeviceID,
		"set_modes":        update.Modes != nil,
		"modes":            update.Modes,
		"set_companions":   update.Companions != nil,
		"companions":       update.Companions,
		"set_metadata":     update.Metadata != nil,
		"metadata":         update.Metadata,
		"set_dest_lat":     update.DestLat != nil,
		"dest_lat":         update.DestLat,
		"set_dest_lng":     update.DestLng != nil,
		"dest_lng":         update.DestLng,
		"set_dest_address": update.SetDestAddress,
		"dest_address_enc": update.DestAddressEnc,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = r.classifyWriteMiss(ctx, ownerID, tripID)
		}
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

// Stop closes an open trip and refreshes the distance and duration caches.
// The duration cache derives from the clamped end timestamp in SQL so the
// two can never disagree.
func (r *pgTripRepo) Stop(ctx context.Context, ownerID, tripID uuid.UUID, stop TripStop) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET ended_at   = GREATEST(started_at, @ended_at),
		    end_lat    = @end_lat,
		    end_lng    = @end_lng,
		    distance_m = @distance_m,
		    duration_s = EXTRACT(EPOCH FROM (GREATEST(started_at, @ended_at) - started_at)),
		    updated_at = now()
		WHERE id = @id AND owner_id = @owner_id AND ended_at IS NULL
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":         tripID,
		"owner_id":   ownerID,
		"ended_at":   stop.EndedAt,
		"end_lat":    stop.EndLat,
		"end_lng":    stop.EndLng,
		"distance_m": stop.DistanceM,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = r.classifyWriteMiss(ctx, ownerID, tripID)
		}
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Stop: %w", err)
	}
	return result, nil
}

// classifyWriteMiss explains a guarded write that matched no rows: either
// the trip does not exist for this owner, or it exists but is closed.
func (r *pgTripRepo) classifyWriteMiss(ctx context.Context, ownerID, tripID uuid.UUID) error {
	const q = `SELECT ended_at IS NOT NULL FROM trips WHERE id = @id AND owner_id = @owner_id`

	var isClosed bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "owner_id": ownerID}).Scan(&isClosed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if isClosed {
		return domain.ErrInvalidState
	}
	return domain.ErrNotFound
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID conversions; the nullable columns scan directly into
// the domain's pointer fields.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t       domain.Trip
		id      pgtype.UUID
		ownerID pgtype.UUID
	)

	err := s.Scan(&id, &ownerID, &t.DeviceID, &t.StartedAt, &t.EndedAt,
		&t.StartLat, &t.StartLng, &t.EndLat, &t.EndLng,
		&t.Modes, &t.Companions, &t.Metadata,
		&t.DestLat, &t.DestLng, &t.DestAddressEnc,
		&t.DistanceM, &t.DurationS, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.OwnerID = uuid.UUID(ownerID.Bytes)
	return t, nil
}
