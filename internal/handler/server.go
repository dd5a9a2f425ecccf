// Package handler implements the HTTP handlers for the Sanchara trips API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, point.go, etc.) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NATPAC-Sanchara/trips/internal/domain"
	"github.com/NATPAC-Sanchara/trips/internal/metrics"
	"github.com/NATPAC-Sanchara/trips/internal/middleware"
	"github.com/NATPAC-Sanchara/trips/internal/service"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Start(ctx context.Context, who domain.Identity, in domain.StartTripInput) (domain.Trip, *domain.Trip, error)
	GetDetail(ctx context.Context, who domain.Identity, tripID uuid.UUID) (service.TripDetail, error)
	List(ctx context.Context, who domain.Identity, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.UpdateTripInput) (domain.Trip, error)
	Stop(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.StopTripInput) (domain.Trip, error)
}

// PointServicer defines the business operations the point handlers depend on.
type PointServicer interface {
	IngestOne(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.PointInput) (domain.TripPoint, bool, error)
	IngestBatch(ctx context.Context, who domain.Identity, tripID uuid.UUID, inputs []domain.PointInput) (int64, error)
}

// EventServicer defines the business operations the event handlers depend on.
type EventServicer interface {
	Append(ctx context.Context, who domain.Identity, tripID uuid.UUID, in domain.EventInput) (domain.TripEvent, error)
	ListByTrip(ctx context.Context, who domain.Identity, tripID uuid.UUID, p domain.PaginationParams) ([]domain.TripEvent, int64, error)
}

// StatsServicer defines the business operations the stats handlers depend on.
type StatsServicer interface {
	Streak(ctx context.Context, who domain.Identity) (domain.Streak, error)
	WeeklyLeaderboard(ctx context.Context, who domain.Identity, fullRoster bool) ([]domain.LeaderboardEntry, error)
}

// Pinger reports whether the backing store is reachable. *pgxpool.Pool
// satisfies it; readiness checks are its only consumer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies shared by all API endpoints.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	trips   TripServicer
	points  PointServicer
	events  EventServicer
	stats   StatsServicer
	db      Pinger
	metrics *metrics.Collector
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, points PointServicer, events EventServicer, stats StatsServicer, db Pinger, m *metrics.Collector) *Server {
	return &Server{
		trips:   trips,
		points:  points,
		events:  events,
		stats:   stats,
		db:      db,
		metrics: m,
	}
}

// Routes returns the chi router for the full API surface. Health, readiness
// and the spec are public; everything else sits behind the gateway identity
// headers enforced by middleware.RequireIdentity.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/openapi.yaml", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Route("/trips", func(r chi.Router) {
			r.Post("/start", s.handleStartTrip)
			r.Get("/", s.handleListTrips)

			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", s.handleGetTrip)
				r.Patch("/", s.handleUpdateTrip)
				r.Post("/stop", s.handleStopTrip)
				r.Post("/points", s.handleIngestPoint)
				r.Post("/points/batch", s.handleIngestPointBatch)
				r.Post("/events", s.handleAppendEvent)
				r.Get("/events", s.handleListEvents)
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/streak", s.handleStreak)
			r.Get("/leaderboard", s.handleLeaderboard)
		})
	})

	return r
}

// identityFrom pulls the caller placed in context by RequireIdentity.
// A missing identity means the route was mounted without the middleware,
// which the 401 surfaces loudly instead of serving another user's data.
func identityFrom(r *http.Request) (domain.Identity, error) {
	who, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return who, nil
}

// tripIDParam parses the {tripID} URL parameter. An unparseable ID cannot
// name an existing trip, so it reports ErrNotFound rather than a validation
// failure.
func tripIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}

// paginationParams reads ?page and ?limit, leaving normalization (defaults,
// caps) to domain.NormalizePagination.
func paginationParams(r *http.Request) domain.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return domain.NormalizePagination(page, limit)
}
