package domain

import "time"

// JobState is the lifecycle state of an optimization job.
//
//	PENDING ──dispatch──▶ RUNNING ──success──▶ COMPLETED
//	                         │
//	                         └──error/timeout/cancel──▶ FAILED
//
// Transitions are monotone; terminal states never change.
type JobState string

const (
	JobPending   JobState = "PENDING"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransitionTo enforces the monotone state machine.
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobPending:
		return next == JobRunning || next == JobFailed
	case JobRunning:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// Strategy selects the dominant objective level for a plan.
type Strategy string

const (
	StrategyMinimizeVehicles Strategy = "MINIMIZE_VEHICLES"
	StrategyMinimizeDistance Strategy = "MINIMIZE_DISTANCE"
)

// ValidStrategy reports whether s is a recognized strategy value.
func ValidStrategy(s Strategy) bool {
	return s == StrategyMinimizeVehicles || s == StrategyMinimizeDistance
}

// Job is a persistent optimization run. The request parameters are frozen on
// the record so a completed plan can always be re-derived; progress is
// monotone non-decreasing and capped at 95 until a terminal state.
type Job struct {
	ID       string
	PlanDate string
	State    JobState
	Progress int

	DepotLat         float64
	DepotLon         float64
	DepartureMin     int
	AmbientTempC     float64
	InitialCargoTemp float64
	TimeLimitSeconds int
	Strategy         Strategy

	VehicleCount  int
	ShipmentCount int

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	ErrorKind    string
	ErrorMessage string

	Summary    *PlanSummary
	Violations *ViolationsReport

	RouteIDs []int64
}
