package handlers

import (
	"math"
	"net/http"

	"coldchain-dispatch-service/internal/api/dto"
	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

// EstimateHandler answers the quick-estimate endpoint: aggregate capacity
// arithmetic over the current snapshots, no solver run.
type EstimateHandler struct {
	Vehicles  ports.VehicleRepository
	Shipments ports.ShipmentRepository
}

func (h *EstimateHandler) Quick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planDate, err := parsePlanDate(r.URL.Query().Get("plan_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	vehicles, err := h.Vehicles.ListAvailable(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shipments, err := h.Shipments.ListPending(ctx, planDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if len(vehicles) == 0 || len(shipments) == 0 {
		writeJSON(w, r, http.StatusOK, dto.EstimateEmptyResponse{
			PlanDate:   planDate,
			IsFeasible: false,
			Reason:     "no available vehicles or pending shipments",
		})
		return
	}

	var totalWeight, totalVolume, fleetWeight, fleetVolume float64
	strictCount := 0
	for _, s := range shipments {
		totalWeight += s.WeightKg
		totalVolume += s.VolumeM3
		if s.SLA == domain.SLAStrict {
			strictCount++
		}
	}
	for _, v := range vehicles {
		fleetWeight += v.CapacityWeightKg
		fleetVolume += v.CapacityVolumeM3
	}

	weightUtil := 999.0
	if fleetWeight > 0 {
		weightUtil = totalWeight / fleetWeight
	}
	volumeUtil := 999.0
	if fleetVolume > 0 {
		volumeUtil = totalVolume / fleetVolume
	}

	n := len(vehicles)
	minNeeded := int(weightUtil*float64(n)) + 1
	if byVolume := int(volumeUtil*float64(n)) + 1; byVolume > minNeeded {
		minNeeded = byVolume
	}
	if minNeeded > n {
		minNeeded = n
	}

	recommendation := "Sufficient capacity"
	switch {
	case weightUtil > 1.0 || volumeUtil > 1.0:
		recommendation = "Over capacity - some shipments may not be assigned"
	case weightUtil > 0.9 || volumeUtil > 0.9:
		recommendation = "Near capacity - consider adding vehicles"
	}

	writeJSON(w, r, http.StatusOK, dto.EstimateResponse{
		PlanDate: planDate,
		Resources: dto.EstimateResources{
			AvailableVehicles:  n,
			PendingShipments:   len(shipments),
			StrictSLAShipments: strictCount,
		},
		Capacity: dto.EstimateCapacity{
			TotalWeightKg:         totalWeight,
			TotalVolumeM3:         totalVolume,
			FleetWeightCapacityKg: fleetWeight,
			FleetVolumeCapacityM3: fleetVolume,
			WeightUtilizationPct:  roundPct(weightUtil),
			VolumeUtilizationPct:  roundPct(volumeUtil),
		},
		Estimate: dto.EstimateVerdict{
			MinVehiclesNeeded: minNeeded,
			IsLikelyFeasible:  weightUtil <= 1.0 && volumeUtil <= 1.0,
			Recommendation:    recommendation,
		},
	})
}

func roundPct(utilization float64) float64 {
	return math.Round(utilization*1000) / 10
}
