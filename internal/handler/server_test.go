package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/handler"
	"github.com/NATPAC-Sanchara/trips/internal/metrics"
	"github.com/NATPAC-Sanchara/trips/internal/middleware"
	"github.com/NATPAC-Sanchara/trips/internal/service"
)

// ---- mock servicers ----------------------------------------------------------
// Hand-written test doubles for the handler's servicer interfaces.
// Set only the method fields your test needs.

type mockTripServicer struct {
	start     func(ctx context.Context, who domain.Identity, in domain.StartTripInput) (domain.Trip, *domain.Trip, error)
	getDetail func(ctx context.Context, who domain.Identity, tripID uuid.UUID) (service.TripDetail, error)
	list      func(ctx context.Context, who domain.Identity, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update    func(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.UpdateTripInput) (domain.Trip, error)
	stop      func(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.StopTripInput) (domain.Trip, error)
}

func (m *mockTripServicer) Start(ctx context.Context, who domain.Identity, in domain.StartTripInput) (domain.Trip, *domain.Trip, error) {
	return m.start(ctx, who, in)
}
func (m *mockTripServicer) GetDetail(ctx context.Context, who domain.Identity, tripID uuid.UUID) (service.TripDetail, error) {
	return m.getDetail(ctx, who, tripID)
}
func (m *mockTripServicer) List(ctx context.Context, who domain.Identity, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.list(ctx, who, p)
}
func (m *mockTripServicer) Update(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.UpdateTripInput) (domain.Trip, error) {
	return m.update(ctx, who, tripID, in)
}
func (m *mockTripServicer) Stop(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.StopTripInput) (domain.Trip, error) {
	return m.stop(ctx, who, tripID, in)
}

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

type mockPointServicer struct {
	ingestOne   func(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.PointInput) (domain.TripPoint, bool, error)
	ingestBatch func(ctx context.Context, who domain.Identity, tripID uuid.UUID, inputs []domain.PointInput) (int64, error)
}

func (m *mockPointServicer) IngestOne(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.PointInput) (domain.TripPoint, bool, error) {
	return m.ingestOne(ctx, who, tripID, in)
}
func (m *mockPointServicer) IngestBatch(ctx context.Context, who domain.Identity, tripID uuid.UUID, inputs []domain.PointInput) (int64, error) {
	return m.ingestBatch(ctx, who, tripID, inputs)
}

var _ handler.PointServicer = (*mockPointServicer)(nil)

type mockEventServicer struct {
	appendFn   func(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.EventInput) (domain.TripEvent, error)
	listByTrip func(ctx context.Context, who domain.Identity, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, int64, error)
}

func (m *mockEventServicer) Append(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.EventInput) (domain.TripEvent, error) {
	return m.appendFn(ctx, who, tripID, in)
}
func (m *mockEventServicer) ListByTrip(ctx context.Context, who domain.Identity, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, int64, error) {
	return m.listByTrip(ctx, who, tripID, p)
}

var _ handler.EventServicer = (*mockEventServicer)(nil)

type mockStatsServicer struct {
	streak      func(ctx context.Context, who domain.Identity) (domain.Streak, error)
	leaderboard func(ctx context.Context, who domain.Identity, fullRoster bool) ([]domain.LeaderboardEntry, error)
}

func (m *mockStatsServicer) Streak(ctx context.Context, who domain.Identity) (domain.Streak, error) {
	return m.streak(ctx, who)
}
func (m *mockStatsServicer) WeeklyLeaderboard(ctx context.Context, who domain.Identity, fullRoster bool) ([]domain.LeaderboardEntry, error) {
	return m.leaderboard(ctx, who, fullRoster)
}

var _ handler.StatsServicer = (*mockStatsServicer)(nil)

type mockPinger struct {
	ping func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.ping != nil {
		return m.ping(ctx)
	}
	return nil
}

var _ handler.Pinger = (*mockPinger)(nil)

// ---- helpers -----------------------------------------------------------------

// deps bundles the mocks a test wires into the server. Nil fields are fine
// as long as the test never routes into them.
type deps struct {
	trips  handler.TripServicer
	points handler.PointServicer
	events handler.EventServicer
	stats  handler.StatsServicer
	db     handler.Pinger
}

// newHTTPHandler wires a Server with the given mocks into the chi router,
// mirroring exactly how main.go wires it in production, identity middleware
// included. Each call gets a fresh metrics registry so counters never clash.
func newHTTPHandler(d deps) http.Handler {
	if d.db == nil {
		d.db = &mockPinger{}
	}
	srv := handler.NewServer(d.trips, d.points, d.events, d.stats, d.db, metrics.NewCollector())
	return srv.Routes()
}

// authedRequest builds a request carrying the gateway identity headers for who.
func authedRequest(t *testing.T, who domain.Identity, method, target string, body any) *http.Request {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(middleware.HeaderUserID, who.UserID.String())
	req.Header.Set(middleware.HeaderUserRole, who.Role)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// do runs req against h and returns the recorded response.
func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorded JSON body into a map for assertions.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// errorCode digs the error code out of the standard error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %s", rec.Body.String())
	code, _ := detail["code"].(string)
	return code
}

func userIdentity() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleUser}
}

func tripFixture(owner uuid.UUID) domain.Trip {
	started := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)
	return domain.Trip{
		ID:         uuid.New(),
		OwnerID:    owner,
		DeviceID:   "device-1",
		StartedAt:  started,
		Modes:      []string{"walk"},
		Companions: []domain.Companion{},
		Metadata:   map[string]any{},
		CreatedAt:  started,
		UpdatedAt:  started,
	}
}
