package ports

import (
	"context"

	"coldchain-dispatch-service/internal/domain"
)

// RouteFilter narrows route listings; zero values match everything.
type RouteFilter struct {
	PlanDate string
	JobID    string
}

// Port: read access to persisted routes and the guarded status update.
type RouteRepository interface {
	// List returns route headers without stops.
	List(ctx context.Context, f RouteFilter) ([]*domain.Route, error)

	// Get returns one route with its ordered stops.
	Get(ctx context.Context, id int64) (*domain.Route, error)

	// ListWithStops returns matching routes with ordered stops attached.
	ListWithStops(ctx context.Context, f RouteFilter) ([]*domain.Route, error)

	// UpdateStatus applies an optimistic-locking status write: the stored
	// version must equal the caller's version or a Conflict error is
	// returned. The stored version increments on success.
	UpdateStatus(ctx context.Context, id int64, status domain.RouteStatus, version int) error
}
