// Package metrics exposes Prometheus instrumentation for the trips API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the API's Prometheus metrics behind a private registry so
// tests can construct independent collectors without duplicate-registration
// panics from the global default registry.
type Collector struct {
	reg *prometheus.Registry

	TripsStarted    prometheus.Counter
	TripsAutoClosed prometheus.Counter
	TripsStopped    prometheus.Counter

	PointsInserted prometheus.Counter
	PointsDeduped  prometheus.Counter
	BatchSize      prometheus.Histogram

	EventsAppended prometheus.Counter

	// AggregateDuration tracks how long the read-time aggregations take,
	// labeled by view (trip_detail, streak, leaderboard). These recompute
	// from raw points on every call, so their latency is worth watching.
	AggregateDuration *prometheus.HistogramVec
}

// NewCollector registers all metrics on a fresh registry and returns the
// collector. Counters are incremented by the HTTP handlers on success paths.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_trips_started_total",
			Help: "Total trips opened.",
		}),
		TripsAutoClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_trips_auto_closed_total",
			Help: "Total stale open trips force-closed by a subsequent start.",
		}),
		TripsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_trips_stopped_total",
			Help: "Total trips closed by an explicit stop.",
		}),
		PointsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_points_inserted_total",
			Help: "Total track points stored, single and batch combined.",
		}),
		PointsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_points_deduplicated_total",
			Help: "Total point uploads dropped as client-ID duplicates.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanchara_point_batch_size",
			Help:    "Number of points per batch upload.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		}),
		EventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sanchara_events_appended_total",
			Help: "Total trip events appended.",
		}),
		AggregateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sanchara_aggregate_duration_seconds",
			Help:    "Latency of read-time aggregate computations by view.",
			Buckets: prometheus.DefBuckets,
		}, []string{"view"}),
	}

	reg.MustRegister(
		c.TripsStarted, c.TripsAutoClosed, c.TripsStopped,
		c.PointsInserted, c.PointsDeduped, c.BatchSize,
		c.EventsAppended, c.AggregateDuration,
	)

	return c
}

// Handler returns the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
