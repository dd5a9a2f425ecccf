package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripPoint is one GPS fix attached to a trip. Points are insert-only;
// there is no update or delete path below trip deletion.
type TripPoint struct {
	ID     int64
	TripID uuid.UUID

	// ClientID is the client-chosen idempotency key. Two submissions with
	// the same (TripID, ClientID) store one row. Empty means the client
	// opted out of dedup for this point.
	ClientID string

	RecordedAt time.Time
	Lat        float64
	Lng        float64

	// Mode is the travel-mode tag for this fix ("walk", "bus", ...).
	// Empty means unknown; distance summaries bucket it accordingly.
	Mode string

	SpeedMps   *float64
	AccuracyM  *float64
	HeadingDeg *float64

	CreatedAt time.Time
}

// PointInput is one fix as submitted by a client, single or batched.
// Lat and Lng are pointers so that a missing coordinate is told apart
// from a genuine zero (the equator and the prime meridian are valid).
type PointInput struct {
	ClientID   string     `json:"clientId" validate:"max=128"`
	Timestamp  *time.Time `json:"timestamp"`
	Lat        *float64   `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng        *float64   `json:"lng" validate:"required,gte=-180,lte=180"`
	Mode       string     `json:"mode" validate:"max=32"`
	SpeedMps   *float64   `json:"speedMps" validate:"omitempty,gte=0"`
	AccuracyM  *float64   `json:"accuracyM" validate:"omitempty,gte=0"`
	HeadingDeg *float64   `json:"headingDeg" validate:"omitempty,gte=0,lt=360"`
}

// MaxBatchPoints bounds a single batch submission. Larger uploads must be
// split by the client.
const MaxBatchPoints = 1000
