package ports

import (
	"context"
	"time"

	"coldchain-dispatch-service/internal/domain"
)

// PlanWrite is the complete result of one solve, persisted as a unit.
type PlanWrite struct {
	JobID      string
	FinishedAt time.Time
	Summary    domain.PlanSummary
	Violations *domain.ViolationsReport
	// Routes carry their stops; IDs are assigned on insert.
	Routes []*domain.Route
	// LaborMinutes records planned duty minutes per vehicle for the labor
	// ledger.
	LaborMinutes map[int64]int
}

// Port: atomic persistence of a completed plan.
type PlanRepository interface {
	// SavePlan writes routes, stops, shipment assignments, labor logs and
	// the COMPLETED job record in one transaction. Nothing is written if the
	// job is no longer RUNNING; that case returns a Conflict error.
	SavePlan(ctx context.Context, plan *PlanWrite) error
}
