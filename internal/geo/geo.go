// Package geo holds the pure distance math for trips. Everything here
// operates on in-memory point slices; fetching is the repo's job.
package geo

import (
	"math"
	"sort"
	"time"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
)

// UnknownMode is the breakdown bucket for points without a mode tag.
const UnknownMode = "unknown"

const earthRadiusM = 6371000.0

// Haversine returns the great-circle distance in meters between two
// WGS84 coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	la1 := toRad(lat1)
	la2 := toRad(lat2)
	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(la1)*math.Cos(la2)*sinLng*sinLng
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Summary is the distance view of one trip's point set.
type Summary struct {
	TotalMeters float64
	// ByMode splits TotalMeters by travel mode. Each segment between two
	// consecutive points is attributed to the mode of the segment's later
	// point; untagged points land in UnknownMode. The per-mode values sum
	// to TotalMeters, so no bucket is ever dropped.
	ByMode map[string]float64
	// PointCount is the number of points that went into the summary.
	PointCount int
}

// Summarize computes the distance summary for a trip's points. The input
// is not modified; points are sorted by recording time (ties keep their
// stored order) before segments are measured. Fewer than two points yield
// a zero summary with an empty, non-nil ByMode.
func Summarize(points []domain.TripPoint) Summary {
	s := Summary{ByMode: map[string]float64{}, PointCount: len(points)}
	if len(points) < 2 {
		return s
	}

	sorted := make([]domain.TripPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		d := Haversine(prev.Lat, prev.Lng, cur.Lat, cur.Lng)
		mode := cur.Mode
		if mode == "" {
			mode = UnknownMode
		}
		s.TotalMeters += d
		s.ByMode[mode] += d
	}
	return s
}

// Duration returns the elapsed time of a closed trip in seconds, or nil
// while the trip is still open. Duration is defined by the trip's own
// start and end stamps, not by its points.
func Duration(t domain.Trip) *float64 {
	if t.EndedAt == nil {
		return nil
	}
	d := t.EndedAt.Sub(t.StartedAt).Seconds()
	if d < 0 {
		d = 0
	}
	return &d
}

// AvgSpeed returns total distance over duration in meters per second, or
// nil when the trip is open or the duration is zero.
func AvgSpeed(totalMeters float64, duration *float64) *float64 {
	if duration == nil || *duration <= 0 {
		return nil
	}
	v := totalMeters / *duration
	return &v
}

// DayUTC truncates a timestamp to its UTC calendar day.
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
