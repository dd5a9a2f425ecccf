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

const pointColumns = `id, trip_id, COALESCE(client_id, ''), recorded_at, lat, lng, mode,
	speed_mps, accuracy_m, heading_deg, created_at`

// PointRepo defines the persistence operations for trip points. Points are
// append-only: they are created on ingestion and removed only when their
// trip is deleted. Ownership checks happen one layer up against TripRepo;
// this repo guards only the open/closed state, which must hold at insert
// time rather than at check time.
type PointRepo interface {
	// InsertOne appends a single point to an open trip. When the point's
	// client id was already stored for the trip, the existing row comes
	// back with inserted=false. Returns domain.ErrInvalidState if the trip
	// is closed, domain.ErrNotFound if it does not exist at all.
	InsertOne(ctx context.Context, point domain.TripPoint) (p domain.TripPoint, inserted bool, err error)

	// InsertBatch appends up to domain.MaxBatchPoints points to an open
	// trip in one statement and returns how many were actually inserted.
	// Points whose client id is already stored (or repeated within the
	// batch) are skipped, never duplicated. Same error contract as
	// InsertOne for a closed or missing trip.
	InsertBatch(ctx context.Context, tripID uuid.UUID, points []domain.TripPoint) (int64, error)

	// ListByTrip returns all points of a trip ordered by recorded_at
	// ascending with the insertion id as tiebreaker.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripPoint, error)
}

// pgPointRepo is the Postgres implementation of PointRepo.
type pgPointRepo struct {
	db db
}

// NewPointRepo constructs a PointRepo backed by the provided db connection.
func NewPointRepo(db db) PointRepo {
	return &pgPointRepo{db: db}
}

// InsertOne appends one point. The WHERE EXISTS guard makes "trip must be
// open" hold atomically with the insert, and the ON CONFLICT arm turns a
// replayed client id into a silent skip instead of an error.
func (r *pgPointRepo) InsertOne(ctx context.Context, point domain.TripPoint) (domain.TripPoint, bool, error) {
	const q = `
		INSERT INTO trip_points (trip_id, client_id, recorded_at, lat, lng, mode,
		                         speed_mps, accuracy_m, heading_deg)
		SELECT @trip_id, NULLIF(@client_id, ''), @recorded_at, @lat, @lng, @mode,
		       @speed_mps, @accuracy_m, @heading_deg
		WHERE EXISTS (SELECT 1 FROM trips WHERE id = @trip_id AND ended_at IS NULL)
		ON CONFLICT (trip_id, client_id) WHERE client_id IS NOT NULL DO NOTHING
		RETURNING ` + pointColumns

	args := pgx.NamedArgs{
		"trip_id":     point.TripID,
		"client_id":   point.ClientID,
		"recorded_at": point.RecordedAt,
		"lat":         point.Lat,
		"lng":         point.Lng,
		"mode":        point.Mode,
		"speed_mps":   point.SpeedMps,
		"accuracy_m":  point.AccuracyM,
		"heading_deg": point.HeadingDeg,
	}

	result, err := scanPoint(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.TripPoint{}, false, fmt.Errorf("repo.PointRepo.InsertOne: %w", err)
	}

	// No row came back: either the trip is not open, or the client id is a
	// duplicate. Tell the two apart and surface the stored row for dups.
	if err := r.requireOpen(ctx, point.TripID); err != nil {
		return domain.TripPoint{}, false, fmt.Errorf("repo.PointRepo.InsertOne: %w", err)
	}

	const dupQ = `
		SELECT ` + pointColumns + `
		FROM trip_points
		WHERE trip_id = @trip_id AND client_id = @client_id`

	existing, err := scanPoint(r.db.QueryRow(ctx, dupQ, pgx.NamedArgs{
		"trip_id":   point.TripID,
		"client_id": point.ClientID,
	}))
	if err != nil {
		return domain.TripPoint{}, false, fmt.Errorf("repo.PointRepo.InsertOne: load duplicate: %w", err)
	}
	return existing, false, nil
}

// InsertBatch appends a whole batch in one statement. unnest turns the
// column arrays back into rows, so one round trip covers the full batch and
// the conflict handling dedups both against stored rows and within the
// batch itself.
func (r *pgPointRepo) InsertBatch(ctx context.Context, tripID uuid.UUID, points []domain.TripPoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	const q = `
		INSERT INTO trip_points (trip_id, client_id, recorded_at, lat, lng, mode,
		                         speed_mps, accuracy_m, heading_deg)
		SELECT @trip_id, NULLIF(p.client_id, ''), p.recorded_at, p.lat, p.lng, p.mode,
		       p.speed_mps, p.accuracy_m, p.heading_deg
		FROM unnest(@client_ids::text[], @recorded_ats::timestamptz[],
		            @lats::float8[], @lngs::float8[], @modes::text[],
		            @speeds::float8[], @accuracies::float8[], @headings::float8[])
		     AS p(client_id, recorded_at, lat, lng, mode, speed_mps, accuracy_m, heading_deg)
		WHERE EXISTS (SELECT 1 FROM trips WHERE id = @trip_id AND ended_at IS NULL)
		ON CONFLICT (trip_id, client_id) WHERE client_id IS NOT NULL DO NOTHING`

	var (
		clientIDs  = make([]string, len(points))
		recordedAt = make([]time.Time, len(points))
		lats       = make([]float64, len(points))
		lngs       = make([]float64, len(points))
		modes      = make([]string, len(points))
		speeds     = make([]pgtype.Float8, len(points))
		accuracies = make([]pgtype.Float8, len(points))
		headings   = make([]pgtype.Float8, len(points))
	)
	for i, p := range points {
		clientIDs[i] = p.ClientID
		recordedAt[i] = p.RecordedAt
		lats[i] = p.Lat
		lngs[i] = p.Lng
		modes[i] = p.Mode
		speeds[i] = nullableFloat8(p.SpeedMps)
		accuracies[i] = nullableFloat8(p.AccuracyM)
		headings[i] = nullableFloat8(p.HeadingDeg)
	}

	args := pgx.NamedArgs{
		"trip_id":      tripID,
		"client_ids":   clientIDs,
		"recorded_ats": recordedAt,
		"lats":         lats,
		"lngs":         lngs,
		"modes":        modes,
		"speeds":       speeds,
		"accuracies":   accuracies,
		"headings":     headings,
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("repo.PointRepo.InsertBatch: %w", err)
	}

	// Zero rows with a non-empty batch could mean "all duplicates" or
	// "trip not open"; only the latter is an error.
	if tag.RowsAffected() == 0 {
		if err := r.requireOpen(ctx, tripID); err != nil {
			return 0, fmt.Errorf("repo.PointRepo.InsertBatch: %w", err)
		}
	}
	return tag.RowsAffected(), nil
}

// ListByTrip returns a trip's points in recording order.
func (r *pgPointRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripPoint, error) {
	const q = `
		SELECT ` + pointColumns + `
		FROM trip_points
		WHERE trip_id = @trip_id
		ORDER BY recorded_at ASC, id ASC`

	points := []domain.TripPoint{}
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
		if err != nil {
			return err
		}
		defer rows.Close()

		points = points[:0]
		for rows.Next() {
			p, err := scanPoint(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			points = append(points, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("repo.PointRepo.ListByTrip: %w", err)
	}
	return points, nil
}

// requireOpen returns nil when the trip exists and is open, and the
// matching sentinel otherwise.
func (r *pgPointRepo) requireOpen(ctx context.Context, tripID uuid.UUID) error {
	const q = `SELECT ended_at IS NOT NULL FROM trips WHERE id = @trip_id`

	var isClosed bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID}).Scan(&isClosed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if isClosed {
		return domain.ErrInvalidState
	}
	return nil
}

// nullableFloat8 converts an optional float into its pgtype wrapper so it
// can ride inside a float8[] array parameter.
func nullableFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

// scanPoint maps a single database row into a domain.TripPoint.
func scanPoint(s scanner) (domain.TripPoint, error) {
	var (
		p      domain.TripPoint
		tripID pgtype.UUID
	)

	err := s.Scan(&p.ID, &tripID, &p.ClientID, &p.RecordedAt, &p.Lat, &p.Lng, &p.Mode,
		&p.SpeedMps, &p.AccuracyM, &p.HeadingDeg, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripPoint{}, domain.ErrNotFound
		}
		return domain.TripPoint{}, err
	}

	p.TripID = uuid.UUID(tripID.Bytes)
	return p, nil
}
