package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/middleware"
)

// identityEchoHandler records the identity RequireIdentity stored in context.
func identityEchoHandler(got *domain.Identity, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *found = middleware.IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentity_ValidHeaders(t *testing.T) {
	var got domain.Identity
	var found bool
	h := middleware.RequireIdentity(identityEchoHandler(&got, &found))

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set(middleware.HeaderUserID, userID.String())
	req.Header.Set(middleware.HeaderUserRole, domain.RoleUser)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.False(t, got.Admin())
}

func TestRequireIdentity_AdminRole(t *testing.T) {
	var got domain.Identity
	var found bool
	h := middleware.RequireIdentity(identityEchoHandler(&got, &found))

	req := httptest.NewRequest(http.MethodGet, "/stats/leaderboard", nil)
	req.Header.Set(middleware.HeaderUserID, uuid.NewString())
	req.Header.Set(middleware.HeaderUserRole, domain.RoleAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.True(t, got.Admin())
}

func TestRequireIdentity_MissingUserID(t *testing.T) {
	h := middleware.RequireIdentity(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set(middleware.HeaderUserRole, domain.RoleUser)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error.Code)
	assert.Contains(t, body.Error.Message, middleware.HeaderUserID)
}

func TestRequireIdentity_MalformedUserID(t *testing.T) {
	h := middleware.RequireIdentity(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set(middleware.HeaderUserID, "not-a-uuid")
	req.Header.Set(middleware.HeaderUserRole, domain.RoleUser)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireIdentity_UnknownRole(t *testing.T) {
	h := middleware.RequireIdentity(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set(middleware.HeaderUserID, uuid.NewString())
	req.Header.Set(middleware.HeaderUserRole, "superuser")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityFrom_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips", nil)

	_, found := middleware.IdentityFrom(req.Context())
	assert.False(t, found)
}
