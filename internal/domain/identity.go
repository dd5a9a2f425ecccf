package domain

import "github.com/google/uuid"

// Roles recognized by the API. The gateway in front of this service
// authenticates the user and forwards the resolved role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller as resolved by the gateway and
// carried through the request context. Every service method takes the
// caller's identity explicitly rather than digging it out of context.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Admin reports whether the caller may use admin-only query options.
func (id Identity) Admin() bool {
	return id.Role == RoleAdmin
}
