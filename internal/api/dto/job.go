package dto

import (
	"time"

	"coldchain-dispatch-service/internal/domain"
)

type JobStatusResponse struct {
	JobID           string              `json:"job_id"`
	Status          string              `json:"status"`
	Progress        int                 `json:"progress"`
	PlanDate        string              `json:"plan_date"`
	CreatedAt       time.Time           `json:"created_at"`
	StartedAt       *time.Time          `json:"started_at"`
	CompletedAt     *time.Time          `json:"completed_at"`
	DurationSeconds *float64            `json:"duration_seconds"`
	ResultSummary   *domain.PlanSummary `json:"result_summary"`
	RouteIDs        []int64             `json:"route_ids"`
	ErrorKind       string              `json:"error_kind,omitempty"`
	ErrorMessage    string              `json:"error_message,omitempty"`
}

type JobListItem struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	PlanDate      string     `json:"plan_date"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	RoutesCreated int        `json:"routes_created"`
}

type JobListResponse struct {
	Jobs  []JobListItem `json:"jobs"`
	Total int           `json:"total"`
}

type CancelResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ViolationsSummary struct {
	TotalTempViolations int `json:"total_temp_violations"`
	TotalUnassigned     int `json:"total_unassigned"`
}

type ViolationsResponse struct {
	JobID                 string                        `json:"job_id"`
	TemperatureViolations []domain.TemperatureViolation `json:"temperature_violations"`
	UnassignedShipments   []domain.UnassignedShipment   `json:"unassigned_shipments"`
	Summary               ViolationsSummary             `json:"summary"`
}
