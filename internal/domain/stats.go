package domain

import "github.com/google/uuid"

// Streak summarizes an owner's recent activity by UTC calendar day.
// A day counts as active when at least one trip started on it.
type Streak struct {
	// CurrentStreakDays is the length of the consecutive run of active
	// days ending today (UTC). Zero when today has no trip yet.
	CurrentStreakDays int `json:"currentStreakDays"`

	// ActiveDaysLast60 counts distinct active days inside the trailing
	// 60-day window, today included.
	ActiveDaysLast60 int `json:"activeDaysLast60"`
}

// LeaderboardEntry is one owner's aggregate over the trailing seven days.
// Entries order by distance descending, then companion count descending,
// then owner id ascending so that the ordering is total.
type LeaderboardEntry struct {
	OwnerID        uuid.UUID `json:"ownerId"`
	DistanceMeters float64   `json:"distanceMeters"`
	CompanionCount int       `json:"companionCount"`
	TripCount      int       `json:"tripCount"`
}

// MaxLeaderboardEntries caps the leaderboard response size.
const MaxLeaderboardEntries = 100
