package domain

// RouteStatus is the operational lifecycle of a planned route.
type RouteStatus string

const (
	RoutePlanned    RouteStatus = "PLANNED"
	RouteDispatched RouteStatus = "DISPATCHED"
	RouteInProgress RouteStatus = "IN_PROGRESS"
	RouteCompleted  RouteStatus = "COMPLETED"
	RouteCancelled  RouteStatus = "CANCELLED"
)

// CanTransitionTo enforces the forward-only route lifecycle; cancellation is
// allowed from any non-terminal state.
func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	if s == RouteCompleted || s == RouteCancelled {
		return false
	}
	if next == RouteCancelled {
		return true
	}
	switch s {
	case RoutePlanned:
		return next == RouteDispatched
	case RouteDispatched:
		return next == RouteInProgress
	case RouteInProgress:
		return next == RouteCompleted
	default:
		return false
	}
}

// Stop is one ordered delivery on a route. Times are minutes of day;
// temperatures are the tracker's predictions frozen at plan time. Shipment
// display fields are denormalized so a stored plan renders without joining
// live shipment rows.
type Stop struct {
	ID           int64
	RouteID      int64
	Sequence     int
	ShipmentID   int64
	CustomerName string
	Address      string
	Coord        Coordinates

	ArrivalMin   int
	DepartureMin int
	WaitMin      int
	WindowIndex  int

	DistanceFromPrevM int64
	TravelMinFromPrev int
	ServiceMin        int

	TransitRiseC    float64
	ServiceRiseC    float64
	CoolingAppliedC float64
	ArrivalTempC    float64
	DepartureTempC  float64
	TempCeilingC    float64
	Feasible        bool
}

// Route is one vehicle's ordered stop list for a plan, owned by a Job.
// Version increments on every status write and backs optimistic locking.
type Route struct {
	ID           int64
	JobID        string
	VehicleID    int64
	LicensePlate string
	DriverName   string
	RouteCode    string
	PlanDate     string
	Status       RouteStatus

	TotalDistanceM   int64
	TotalDurationMin int
	StopCount        int

	InitialTempC float64
	FinalTempC   float64
	MaxTempC     float64
	Feasible     bool

	Version int
	Stops   []Stop
}

// PlanSummary aggregates a completed solve for the job record.
type PlanSummary struct {
	SolverStatus        string  `json:"solver_status"`
	VehiclesAvailable   int     `json:"vehicles_available"`
	VehiclesUsed        int     `json:"vehicles_used"`
	ShipmentsTotal      int     `json:"shipments_total"`
	ShipmentsAssigned   int     `json:"shipments_assigned"`
	ShipmentsUnassigned int     `json:"shipments_unassigned"`
	TotalDistanceM      int64   `json:"total_distance_m"`
	TotalDurationMin    int     `json:"total_duration_min"`
	EstimatedCost       int64   `json:"estimated_cost"`
	AllRoutesFeasible   bool    `json:"all_routes_feasible"`
	SolveSeconds        float64 `json:"solve_seconds"`
}

// Diagnostic types attached to unassigned shipments.
const (
	DiagTimeWindow        = "TIME_WINDOW"
	DiagStrictSLA         = "STRICT_SLA"
	DiagTemperature       = "TEMPERATURE"
	DiagCapacityOrRouting = "CAPACITY_OR_ROUTING"
)

// Diagnostic names one likely cause a shipment could not be assigned,
// with the violated parameter and the value pair that conflicts.
type Diagnostic struct {
	Type            string `json:"type"`
	Message         string `json:"message"`
	Parameter       string `json:"parameter"`
	CurrentValue    string `json:"current_value"`
	ConstraintValue string `json:"constraint_value"`
}

// UnassignedShipment reports a shipment left out of the plan.
type UnassignedShipment struct {
	ShipmentID    int64        `json:"shipment_id"`
	CustomerName  string       `json:"customer_name"`
	SLA           SLATier      `json:"sla_tier"`
	Priority      int          `json:"priority"`
	LikelyReasons []Diagnostic `json:"likely_reasons"`
}

// TemperatureViolation reports a stop whose predicted arrival temperature
// exceeds the shipment's ceiling.
type TemperatureViolation struct {
	ShipmentID     int64   `json:"shipment_id"`
	RouteCode      string  `json:"route_code"`
	VehicleID      int64   `json:"vehicle_id"`
	Sequence       int     `json:"sequence"`
	PredictedTempC float64 `json:"predicted_temp_c"`
	TempCeilingC   float64 `json:"temp_ceiling_c"`
	OvershootC     float64 `json:"overshoot_c"`
	SLA            SLATier `json:"sla_tier"`
}

// ViolationsReport is the payload behind the violations endpoint; it is
// persisted on the job so FAILED jobs still explain themselves.
type ViolationsReport struct {
	TemperatureViolations []TemperatureViolation `json:"temperature_violations"`
	UnassignedShipments   []UnassignedShipment   `json:"unassigned_shipments"`
}

// Empty reports whether the report carries nothing worth storing.
func (r *ViolationsReport) Empty() bool {
	return r == nil || (len(r.TemperatureViolations) == 0 && len(r.UnassignedShipments) == 0)
}
