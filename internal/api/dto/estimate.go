package dto

type EstimateResources struct {
	AvailableVehicles  int `json:"available_vehicles"`
	PendingShipments   int `json:"pending_shipments"`
	StrictSLAShipments int `json:"strict_sla_shipments"`
}

type EstimateCapacity struct {
	TotalWeightKg         float64 `json:"total_weight_kg"`
	TotalVolumeM3         float64 `json:"total_volume_m3"`
	FleetWeightCapacityKg float64 `json:"fleet_weight_capacity_kg"`
	FleetVolumeCapacityM3 float64 `json:"fleet_volume_capacity_m3"`
	WeightUtilizationPct  float64 `json:"weight_utilization_pct"`
	VolumeUtilizationPct  float64 `json:"volume_utilization_pct"`
}

type EstimateVerdict struct {
	MinVehiclesNeeded int    `json:"min_vehicles_needed"`
	IsLikelyFeasible  bool   `json:"is_likely_feasible"`
	Recommendation    string `json:"recommendation"`
}

type EstimateResponse struct {
	PlanDate  string            `json:"plan_date"`
	Resources EstimateResources `json:"resources"`
	Capacity  EstimateCapacity  `json:"capacity"`
	Estimate  EstimateVerdict   `json:"estimate"`
}

// EstimateEmptyResponse is returned when there is nothing to plan.
type EstimateEmptyResponse struct {
	PlanDate   string `json:"plan_date"`
	IsFeasible bool   `json:"is_feasible"`
	Reason     string `json:"reason"`
}
