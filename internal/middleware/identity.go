package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// Header names set by the gateway after it authenticates the caller.
// This service never sees credentials; it trusts the gateway's verdict.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// identityKey is the context key under which RequireIdentity stores the
// caller's identity. Unexported so only IdentityFrom can read it back.
type identityKey struct{}

// RequireIdentity extracts the authenticated caller from the gateway headers
// and stores it in the request context. Requests with a missing or malformed
// user ID, or a role outside {user, admin}, are rejected with 401 before
// reaching any handler.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get(HeaderUserID))
		if err != nil {
			writeErrorJSON(w, http.StatusUnauthorized, "unauthorized", "missing or malformed "+HeaderUserID+" header")
			return
		}

		role := r.Header.Get(HeaderUserRole)
		if role != domain.RoleUser && role != domain.RoleAdmin {
			writeErrorJSON(w, http.StatusUnauthorized, "unauthorized", "missing or unknown "+HeaderUserRole+" header")
			return
		}

		who := domain.Identity{UserID: userID, Role: role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, who)))
	})
}

// IdentityFrom returns the caller stored in ctx by RequireIdentity.
// The second return is false when the middleware did not run for this request.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	who, ok := ctx.Value(identityKey{}).(domain.Identity)
	return who, ok
}

// writeErrorJSON writes the API error envelope without importing the handler
// package, which would create an import cycle.
func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
