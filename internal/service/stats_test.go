package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/geo"
	"github.com/NATPAC-Sanchara/trips/internal/repo"
	"github.com/NATPAC-Sanchara/trips/internal/service"
)

// ---- mock repo -----------------------------------------------------------------

// mockStatsRepo is a hand-written test double for repo.StatsRepo.
type mockStatsRepo struct {
	activeDays        func(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error)
	tripsStartedSince func(ctx context.Context, since time.Time) ([]domain.Trip, error)
	pointsForTrips    func(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error)
	ownerIDs          func(ctx context.Context) ([]uuid.UUID, error)
}

func (m *mockStatsRepo) ActiveDays(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error) {
	return m.activeDays(ctx, ownerID, since)
}
func (m *mockStatsRepo) TripsStartedSince(ctx context.Context, since time.Time) ([]domain.Trip, error) {
	return m.tripsStartedSince(ctx, since)
}
func (m *mockStatsRepo) PointsForTrips(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error) {
	if m.pointsForTrips != nil {
		return m.pointsForTrips(ctx, tripIDs)
	}
	return map[uuid.UUID][]domain.TripPoint{}, nil
}
func (m *mockStatsRepo) OwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	if m.ownerIDs != nil {
		return m.ownerIDs(ctx)
	}
	return nil, nil
}

// compile-time check: mockStatsRepo must satisfy repo.StatsRepo.
var _ repo.StatsRepo = (*mockStatsRepo)(nil)

// ---- helpers -------------------------------------------------------------------

// fixedNow pins "now" so streak and window math is deterministic.
var fixedNow = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// utcDay returns the UTC midnight n days before the pinned today.
func utcDay(n int) time.Time {
	return time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
}

func admin() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}
}

// windowTrip builds a trip started inside the leaderboard window.
func windowTrip(ownerID uuid.UUID, companions int) domain.Trip {
	t := domain.Trip{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		StartedAt: fixedNow.Add(-48 * time.Hour),
	}
	for i := 0; i < companions; i++ {
		t.Companions = append(t.Companions, domain.Companion{Name: "companion"})
	}
	return t
}

// ---- Streak ----------------------------------------------------------------------

func TestStatsService_Streak_ConsecutiveRun(t *testing.T) {
	who := caller()
	var capturedSince time.Time

	svc := service.NewStatsService(&mockStatsRepo{
		activeDays: func(_ context.Context, ownerID uuid.UUID, since time.Time) ([]time.Time, error) {
			assert.Equal(t, who.UserID, ownerID)
			capturedSince = since
			return []time.Time{utcDay(0), utcDay(1), utcDay(2), utcDay(4)}, nil
		},
	}, fixedClock)

	got, err := svc.Streak(context.Background(), who)

	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentStreakDays)
	assert.Equal(t, 4, got.ActiveDaysLast60)
	// 60-day window including today
	assert.True(t, capturedSince.Equal(utcDay(59)), "since = %v", capturedSince)
}

func TestStatsService_Streak_NoTripToday(t *testing.T) {
	svc := service.NewStatsService(&mockStatsRepo{
		activeDays: func(_ context.Context, _ uuid.UUID, _ time.Time) ([]time.Time, error) {
			return []time.Time{utcDay(1), utcDay(2)}, nil
		},
	}, fixedClock)

	got, err := svc.Streak(context.Background(), caller())

	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentStreakDays)
	assert.Equal(t, 2, got.ActiveDaysLast60)
}

func TestStatsService_Streak_EmptyWindow(t *testing.T) {
	svc := service.NewStatsService(&mockStatsRepo{
		activeDays: func(_ context.Context, _ uuid.UUID, _ time.Time) ([]time.Time, error) {
			return nil, nil
		},
	}, fixedClock)

	got, err := svc.Streak(context.Background(), caller())

	require.NoError(t, err)
	assert.Equal(t, domain.Streak{}, got)
}

// ---- WeeklyLeaderboard -------------------------------------------------------------

func TestStatsService_WeeklyLeaderboard_RanksByDistance(t *testing.T) {
	ownerA, ownerB := uuid.New(), uuid.New()
	tripA := windowTrip(ownerA, 0)
	tripB := windowTrip(ownerB, 0)

	pointsA := []domain.TripPoint{
		tripPointAt(tripA.ID, 12.9716, 77.5946, "walk", 0),
		tripPointAt(tripA.ID, 12.9720, 77.5950, "walk", 5),
	}
	wantDistance := geo.Haversine(12.9716, 77.5946, 12.9720, 77.5950)

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, _ time.Time) ([]domain.Trip, error) {
			return []domain.Trip{tripB, tripA}, nil
		},
		pointsForTrips: func(_ context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error) {
			assert.Len(t, tripIDs, 2)
			return map[uuid.UUID][]domain.TripPoint{tripA.ID: pointsA}, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), caller(), false)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ownerA, entries[0].OwnerID)
	assert.InDelta(t, wantDistance, entries[0].DistanceMeters, 1e-9)
	assert.Equal(t, ownerB, entries[1].OwnerID)
	assert.Zero(t, entries[1].DistanceMeters)
}

func TestStatsService_WeeklyLeaderboard_TieBrokenByCompanionCount(t *testing.T) {
	ownerA, ownerB := uuid.New(), uuid.New()

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, _ time.Time) ([]domain.Trip, error) {
			return []domain.Trip{windowTrip(ownerB, 0), windowTrip(ownerA, 2)}, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), caller(), false)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ownerA, entries[0].OwnerID)
	assert.Equal(t, 2, entries[0].CompanionCount)
	assert.Equal(t, ownerB, entries[1].OwnerID)
}

func TestStatsService_WeeklyLeaderboard_AggregatesAcrossTrips(t *testing.T) {
	owner := uuid.New()
	first := windowTrip(owner, 1)
	second := windowTrip(owner, 1)

	segment := geo.Haversine(12.9716, 77.5946, 12.9720, 77.5950)
	points := map[uuid.UUID][]domain.TripPoint{
		first.ID: {
			tripPointAt(first.ID, 12.9716, 77.5946, "walk", 0),
			tripPointAt(first.ID, 12.9720, 77.5950, "walk", 5),
		},
		second.ID: {
			tripPointAt(second.ID, 12.9716, 77.5946, "bus", 0),
			tripPointAt(second.ID, 12.9720, 77.5950, "bus", 5),
		},
	}

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, _ time.Time) ([]domain.Trip, error) {
			return []domain.Trip{first, second}, nil
		},
		pointsForTrips: func(_ context.Context, _ []uuid.UUID) (map[uuid.UUID][]domain.TripPoint, error) {
			return points, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), caller(), false)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 2*segment, entries[0].DistanceMeters, 1e-9)
	assert.Equal(t, 2, entries[0].CompanionCount)
	assert.Equal(t, 2, entries[0].TripCount)
}

func TestStatsService_WeeklyLeaderboard_WindowIsSevenDays(t *testing.T) {
	var capturedSince time.Time

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, since time.Time) ([]domain.Trip, error) {
			capturedSince = since
			return nil, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), caller(), false)

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.True(t, capturedSince.Equal(fixedNow.Add(-7*24*time.Hour)), "since = %v", capturedSince)
}

func TestStatsService_WeeklyLeaderboard_FullRosterRequiresAdmin(t *testing.T) {
	// repo funcs left nil: any call would panic the test
	svc := service.NewStatsService(&mockStatsRepo{}, fixedClock)

	_, err := svc.WeeklyLeaderboard(context.Background(), caller(), true)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStatsService_WeeklyLeaderboard_FullRosterAppendsZeroOwners(t *testing.T) {
	ownerA, ownerB := uuid.New(), uuid.New()

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, _ time.Time) ([]domain.Trip, error) {
			return []domain.Trip{windowTrip(ownerA, 1)}, nil
		},
		ownerIDs: func(_ context.Context) ([]uuid.UUID, error) {
			return []uuid.UUID{ownerA, ownerB}, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), admin(), true)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ownerA, entries[0].OwnerID)
	assert.Equal(t, ownerB, entries[1].OwnerID)
	assert.Zero(t, entries[1].DistanceMeters)
	assert.Zero(t, entries[1].TripCount)
}

func TestStatsService_WeeklyLeaderboard_CapsEntries(t *testing.T) {
	trips := make([]domain.Trip, domain.MaxLeaderboardEntries+20)
	for i := range trips {
		trips[i] = windowTrip(uuid.New(), 0)
	}

	svc := service.NewStatsService(&mockStatsRepo{
		tripsStartedSince: func(_ context.Context, _ time.Time) ([]domain.Trip, error) {
			return trips, nil
		},
	}, fixedClock)

	entries, err := svc.WeeklyLeaderboard(context.Background(), caller(), false)

	require.NoError(t, err)
	assert.Len(t, entries, domain.MaxLeaderboardEntries)
}
