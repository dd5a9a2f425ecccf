package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripEvent is one annotation on a trip's timeline. Events append to both
// open and closed trips: a mode-change detector or survey runs after the
// fact, so closing a trip must not freeze its event log.
type TripEvent struct {
	ID      uuid.UUID
	TripID  uuid.UUID
	Type    string
	Payload map[string]any

	CreatedAt time.Time
}

// EventInput is the client-supplied part of an event.
type EventInput struct {
	Type    string         `json:"type" validate:"required,max=64"`
	Payload map[string]any `json:"payload"`
}
