package dto

// OptimizeParameters tunes one solver run. Omitted fields fall back to the
// configured defaults.
type OptimizeParameters struct {
	TimeLimitSeconds   int      `json:"time_limit_seconds"`
	Strategy           string   `json:"strategy"`
	AmbientTemperature *float64 `json:"ambient_temperature"`
	InitialVehicleTemp *float64 `json:"initial_vehicle_temp"`
}

type OptimizeRequest struct {
	PlanDate             string              `json:"plan_date"`
	PlannedDepartureTime string              `json:"planned_departure_time"`
	DepotLatitude        *float64            `json:"depot_latitude"`
	DepotLongitude       *float64            `json:"depot_longitude"`
	Parameters           *OptimizeParameters `json:"parameters"`
}

type OptimizeResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	ShipmentCount int    `json:"shipment_count"`
	VehicleCount  int    `json:"vehicle_count"`
}
