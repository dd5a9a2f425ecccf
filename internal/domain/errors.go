package domain

import "errors"

// Sentinel errors shared across the repo, service and handler layers.
// Lower layers wrap these with context; handlers unwrap with errors.Is
// to choose a status code.
var (
	// ErrNotFound means the requested row does not exist or is owned by
	// someone else. The two cases are deliberately indistinguishable so
	// that responses do not leak whether another user's trip exists.
	// Handlers map it to 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the row exists and belongs to the caller but
	// is in a state that forbids the operation, e.g. writing to a trip
	// that has already been stopped. Handlers map it to 409.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation means the input failed a shape or range check before
	// any storage work happened. Handlers map it to 422.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the request carried no usable identity.
	// Handlers map it to 401.
	ErrUnauthorized = errors.New("unauthorized")
)
