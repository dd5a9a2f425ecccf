// Package domain contains the core data types for the Sanchara trips service.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (repo, service, handler, geo).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the top-level aggregate: one tracked journey owned by exactly one
// user. Points and events belong to a trip and are removed with it.
//
// A trip is "open" while EndedAt is nil. For any owner at most one trip is
// open at any instant; TripRepo.Start enforces this by closing the previous
// open trip inside the same transaction that inserts the new one.
type Trip struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	DeviceID string // empty when the client did not identify its device

	StartedAt time.Time
	EndedAt   *time.Time // nil while the trip is open; set exactly once

	StartLat *float64
	StartLng *float64
	EndLat   *float64
	EndLng   *float64

	// Modes holds the travel-mode tags the client requested at start
	// (e.g. "walk", "bus"). Individual points may carry their own tag,
	// which is what the per-mode distance breakdown attributes to.
	Modes []string

	// Companions is an opaque snapshot taken at trip start. It is never
	// joined against user records; the leaderboard only counts entries.
	Companions []Companion

	// Metadata is a free-form JSON object supplied by the client,
	// validated for shape at the API boundary and stored as-is.
	Metadata map[string]any

	DestLat *float64
	DestLng *float64

	// DestAddressEnc is the destination address sealed with the service
	// key. Only the trip-detail path opens it, and only for the owner.
	DestAddressEnc []byte

	// DistanceM and DurationS are cache columns refreshed when the trip
	// is stopped. Read paths never trust them: derived views are always
	// recomputed from the point set.
	DistanceM *float64
	DurationS *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the trip has not been stopped yet.
func (t Trip) Open() bool {
	return t.EndedAt == nil
}

// Companion is one entry of the companions snapshot on a trip.
// The JSON tags define the persisted JSONB shape.
type Companion struct {
	Name  string `json:"name" validate:"required,max=128"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// StartTripInput carries the optional fields a client may supply when
// opening a trip. Zero values mean "not provided". The JSON tags define
// the request-body shape accepted by POST /trips/start.
type StartTripInput struct {
	Timestamp   *time.Time     `json:"timestamp"`
	Lat         *float64       `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64       `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	DeviceID    string         `json:"deviceId" validate:"max=128"`
	Modes       []string       `json:"modes" validate:"max=8,dive,required,max=32"`
	Companions  []Companion    `json:"companions" validate:"max=16,dive"`
	Metadata    map[string]any `json:"metadata"`
	DestLat     *float64       `json:"destLat" validate:"omitempty,gte=-90,lte=90"`
	DestLng     *float64       `json:"destLng" validate:"omitempty,gte=-180,lte=180"`
	DestAddress string         `json:"destAddress" validate:"max=512"`
}

// UpdateTripInput is a partial update; nil fields are left unchanged.
// Only open trips accept updates.
type UpdateTripInput struct {
	DeviceID    *string        `json:"deviceId" validate:"omitempty,max=128"`
	Modes       *[]string      `json:"modes" validate:"omitempty,max=8,dive,required,max=32"`
	Companions  *[]Companion   `json:"companions" validate:"omitempty,max=16,dive"`
	Metadata    map[string]any `json:"metadata"` // nil means unchanged; {} clears
	DestLat     *float64       `json:"destLat" validate:"omitempty,gte=-90,lte=90"`
	DestLng     *float64       `json:"destLng" validate:"omitempty,gte=-180,lte=180"`
	DestAddress *string        `json:"destAddress" validate:"omitempty,max=512"`
}

// StopTripInput carries the optional end fix supplied when closing a trip.
type StopTripInput struct {
	Timestamp *time.Time `json:"timestamp"`
	Lat       *float64   `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng       *float64   `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}
