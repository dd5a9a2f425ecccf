package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/geo"
	"github.com/NATPAC-Sanchara/trips/internal/repo"
)

const (
	// streakWindowDays is the trailing window of UTC calendar days the
	// streak endpoint reports over, today included.
	streakWindowDays = 60

	// leaderboardWindow is how far back the weekly leaderboard looks for
	// trip starts.
	leaderboardWindow = 7 * 24 * time.Hour
)

// StatsService computes streaks and the weekly leaderboard. Both are derived
// fresh on every call; nothing about rankings is persisted.
type StatsService struct {
	stats repo.StatsRepo
	now   func() time.Time
}

// NewStatsService constructs a StatsService backed by the provided
// StatsRepo. now anchors "today" for the streak and the leaderboard window;
// pass nil for time.Now.
func NewStatsService(stats repo.StatsRepo, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{stats: stats, now: now}
}

// Streak reports the caller's consecutive-day run ending today (UTC) and the
// count of distinct active days inside the trailing 60-day window. A day is
// active when at least one trip started on it. No trip today means a current
// streak of zero, regardless of yesterday.
func (s *StatsService) Streak(ctx context.Context, who domain.Identity) (domain.Streak, error) {
	today := geo.DayUTC(s.now())
	since := today.AddDate(0, 0, -(streakWindowDays - 1))

	days, err := s.stats.ActiveDays(ctx, who.UserID, since)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("service.StatsService.Streak: %w", err)
	}

	// days is newest first, so the streak is the length of the prefix that
	// lines up with today, yesterday, and so on without a gap.
	streak := 0
	for i, day := range days {
		if !geo.DayUTC(day).Equal(today.AddDate(0, 0, -i)) {
			break
		}
		streak++
	}

	return domain.Streak{
		CurrentStreakDays: streak,
		ActiveDaysLast60:  len(days),
	}, nil
}

// WeeklyLeaderboard ranks owners by distance covered on trips started in the
// trailing seven days. Distance is recomputed from each trip's point set
// with the same aggregator the trip detail uses. Owners without a trip in
// the window are omitted unless fullRoster, which requires the admin role
// and appends every owner ever seen with zeroed totals.
func (s *StatsService) WeeklyLeaderboard(ctx context.Context, who domain.Identity, fullRoster bool) ([]domain.LeaderboardEntry, error) {
	if fullRoster && !who.Admin() {
		return nil, fmt.Errorf("%w: full roster requires the admin role", domain.ErrUnauthorized)
	}

	since := s.now().UTC().Add(-leaderboardWindow)
	trips, err := s.stats.TripsStartedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("service.StatsService.WeeklyLeaderboard: %w", err)
	}

	tripIDs := make([]uuid.UUID, len(trips))
	for i, t := range trips {
		tripIDs[i] = t.ID
	}
	pointsByTrip, err := s.stats.PointsForTrips(ctx, tripIDs)
	if err != nil {
		return nil, fmt.Errorf("service.StatsService.WeeklyLeaderboard: %w", err)
	}

	byOwner := map[uuid.UUID]*domain.LeaderboardEntry{}
	for _, t := range trips {
		e := byOwner[t.OwnerID]
		if e == nil {
			e = &domain.LeaderboardEntry{OwnerID: t.OwnerID}
			byOwner[t.OwnerID] = e
		}
		e.DistanceMeters += geo.Summarize(pointsByTrip[t.ID]).TotalMeters
		e.CompanionCount += len(t.Companions)
		e.TripCount++
	}

	if fullRoster {
		owners, err := s.stats.OwnerIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("service.StatsService.WeeklyLeaderboard: %w", err)
		}
		for _, id := range owners {
			if _, ok := byOwner[id]; !ok {
				byOwner[id] = &domain.LeaderboardEntry{OwnerID: id}
			}
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byOwner))
	for _, e := range byOwner {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters > b.DistanceMeters
		}
		if a.CompanionCount != b.CompanionCount {
			return a.CompanionCount > b.CompanionCount
		}
		return bytes.Compare(a.OwnerID[:], b.OwnerID[:]) < 0
	})

	if len(entries) > domain.MaxLeaderboardEntries {
		entries = entries[:domain.MaxLeaderboardEntries]
	}
	return entries, nil
}
