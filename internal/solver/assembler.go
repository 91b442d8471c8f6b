package solver

import (
	"fmt"
	"strings"

	"coldchain-dispatch-service/internal/domain"
)

// AssembleInput joins the search result with the job metadata the plan
// records need.
type AssembleInput struct {
	Model             *Model
	Result            *Result
	JobID             string
	PlanDate          string
	VehiclesAvailable int
	SolveSeconds      float64
}

// Plan is the assembled, persistable outcome of one solve.
type Plan struct {
	Routes     []*domain.Route
	Summary    domain.PlanSummary
	Violations domain.ViolationsReport
	// StrictBreach is set when the authoritative temperature walk finds a
	// STRICT stop over its ceiling; the job fails instead of completing.
	StrictBreach bool
	// LaborMinutes is duty time per vehicle id for the labor ledger.
	LaborMinutes map[int64]int
}

// Assemble converts a search result into domain routes with per-stop timing
// and temperature fields, classifies everything left unassigned, and rolls
// up the plan summary. The temperature walk recorded on each route is the
// authoritative feasibility verdict.
func Assemble(in AssembleInput) *Plan {
	m, res := in.Model, in.Result
	p := &Plan{LaborMinutes: make(map[int64]int)}

	var totalDistM int64
	totalDurMin := 0
	allFeasible := true

	for _, vr := range res.Routes {
		if len(vr.Nodes) == 0 {
			continue
		}
		spec := m.Vehicles[vr.Vehicle]
		code := routeCode(in.PlanDate, spec.LicensePlate, in.JobID)

		route := &domain.Route{
			JobID:            in.JobID,
			VehicleID:        spec.ID,
			LicensePlate:     spec.LicensePlate,
			DriverName:       spec.DriverName,
			RouteCode:        code,
			PlanDate:         in.PlanDate,
			Status:           domain.RoutePlanned,
			TotalDistanceM:   vr.DistanceM,
			TotalDurationMin: vr.DurationMin,
			StopCount:        len(vr.Nodes),
			InitialTempC:     vr.Temps.InitialTempC,
			FinalTempC:       vr.Temps.FinalTempC,
			MaxTempC:         vr.Temps.MaxArrivalTempC,
			Feasible:         vr.Temps.Feasible,
			Version:          1,
		}

		for i, n := range vr.Nodes {
			node := m.Nodes[n]
			sched := vr.Schedule[i]
			temp := vr.Temps.Stops[i]

			route.Stops = append(route.Stops, domain.Stop{
				Sequence:          i + 1,
				ShipmentID:        node.ShipmentID,
				CustomerName:      node.CustomerName,
				Address:           node.Address,
				Coord:             node.Coord,
				ArrivalMin:        sched.ArrivalMin,
				DepartureMin:      sched.DepartureMin,
				WaitMin:           sched.WaitMin,
				WindowIndex:       sched.WindowIndex,
				DistanceFromPrevM: sched.DistanceM,
				TravelMinFromPrev: sched.TravelMin,
				ServiceMin:        node.ServiceMin,
				TransitRiseC:      temp.TransitRiseC,
				ServiceRiseC:      temp.ServiceRiseC,
				CoolingAppliedC:   temp.CoolingAppliedC,
				ArrivalTempC:      temp.ArrivalTempC,
				DepartureTempC:    temp.DepartureTempC,
				TempCeilingC:      node.TempCeilingC,
				Feasible:          temp.Feasible,
			})

			if !temp.Feasible {
				p.Violations.TemperatureViolations = append(p.Violations.TemperatureViolations, domain.TemperatureViolation{
					ShipmentID:     node.ShipmentID,
					RouteCode:      code,
					VehicleID:      spec.ID,
					Sequence:       i + 1,
					PredictedTempC: temp.ArrivalTempC,
					TempCeilingC:   node.TempCeilingC,
					OvershootC:     temp.OvershootC,
					SLA:            node.SLA,
				})
				if node.SLA == domain.SLAStrict {
					p.StrictBreach = true
				}
			}
		}

		if !route.Feasible {
			allFeasible = false
		}
		totalDistM += route.TotalDistanceM
		totalDurMin += route.TotalDurationMin
		p.LaborMinutes[spec.ID] = vr.LaborMin
		p.Routes = append(p.Routes, route)
	}

	for _, ex := range m.Excluded {
		p.Violations.UnassignedShipments = append(p.Violations.UnassignedShipments, domain.UnassignedShipment{
			ShipmentID:    ex.Shipment.ID,
			CustomerName:  ex.Shipment.CustomerName,
			SLA:           ex.Shipment.SLA,
			Priority:      ex.Shipment.Priority,
			LikelyReasons: ex.Reasons,
		})
	}
	for _, n := range res.Dropped {
		p.Violations.UnassignedShipments = append(p.Violations.UnassignedShipments, droppedDiagnostic(m, n))
	}
	if len(p.Violations.UnassignedShipments) > 0 {
		allFeasible = false
	}

	assigned := len(m.Nodes) - 1 - len(res.Dropped)
	total := assigned + len(res.Dropped) + len(m.Excluded)
	used := 0
	for _, vr := range res.Routes {
		if len(vr.Nodes) > 0 {
			used++
		}
	}

	p.Summary = domain.PlanSummary{
		SolverStatus:        string(res.Status),
		VehiclesAvailable:   in.VehiclesAvailable,
		VehiclesUsed:        used,
		ShipmentsTotal:      total,
		ShipmentsAssigned:   assigned,
		ShipmentsUnassigned: total - assigned,
		TotalDistanceM:      totalDistM,
		TotalDurationMin:    totalDurMin,
		EstimatedCost:       estimatedCost(m, totalDistM, used),
		AllRoutesFeasible:   allFeasible,
		SolveSeconds:        in.SolveSeconds,
	}
	return p
}

// droppedDiagnostic explains an in-model drop. Window and temperature
// impossibilities were screened out before the search, so what remains is
// capacity or routing pressure.
func droppedDiagnostic(m *Model, n int) domain.UnassignedShipment {
	node := m.Nodes[n]

	var maxCapW, maxCapV int64
	for _, v := range m.Vehicles {
		if v.CapW > maxCapW {
			maxCapW = v.CapW
		}
		if v.CapV > maxCapV {
			maxCapV = v.CapV
		}
	}

	reasons := []domain.Diagnostic{{
		Type:            domain.DiagCapacityOrRouting,
		Message:         fmt.Sprintf("shipment %d could not be placed on any route without breaking capacity or schedule limits", node.ShipmentID),
		Parameter:       "capacity_or_routing",
		CurrentValue:    fmt.Sprintf("%.1f kg / %.3f m3", float64(node.DemandW)/1000, float64(node.DemandV)/1000),
		ConstraintValue: fmt.Sprintf("largest vehicle %.1f kg / %.3f m3", float64(maxCapW)/1000, float64(maxCapV)/1000),
	}}
	if node.SLA == domain.SLAStrict {
		reasons = append(reasons, domain.Diagnostic{
			Type:            domain.DiagStrictSLA,
			Message:         fmt.Sprintf("shipment %d carries a STRICT service level", node.ShipmentID),
			Parameter:       "sla_tier",
			CurrentValue:    string(domain.SLAStrict),
			ConstraintValue: "must be served",
		})
	}

	return domain.UnassignedShipment{
		ShipmentID:    node.ShipmentID,
		CustomerName:  node.CustomerName,
		SLA:           node.SLA,
		Priority:      node.Priority,
		LikelyReasons: reasons,
	}
}

// estimatedCost is an operating-cost estimate in currency units: distance at
// the per-kilometre rate plus the configured fixed cost per vehicle used.
func estimatedCost(m *Model, distM int64, used int) int64 {
	return distM*m.Params.DistanceCostPerKm/1000 + int64(used)*m.Params.VehicleFixedCost
}

// routeCode builds the human-facing route identifier, e.g.
// R-20260825-ABC123-1a2b3c4d.
func routeCode(planDate, plate, jobID string) string {
	date := strings.ReplaceAll(planDate, "-", "")
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("R-%s-%s-%s", date, sanitizePlate(plate), short)
}

func sanitizePlate(plate string) string {
	var b strings.Builder
	for _, r := range plate {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ExclusionReport builds the violations payload for a job that failed its
// pre-solve screens, before any search ran.
func ExclusionReport(excluded []Exclusion) domain.ViolationsReport {
	var report domain.ViolationsReport
	for _, ex := range excluded {
		report.UnassignedShipments = append(report.UnassignedShipments, domain.UnassignedShipment{
			ShipmentID:    ex.Shipment.ID,
			CustomerName:  ex.Shipment.CustomerName,
			SLA:           ex.Shipment.SLA,
			Priority:      ex.Shipment.Priority,
			LikelyReasons: ex.Reasons,
		})
		if ex.FailsJob {
			report.TemperatureViolations = append(report.TemperatureViolations, domain.TemperatureViolation{
				ShipmentID:     ex.Shipment.ID,
				PredictedTempC: ex.PredictedTempC,
				TempCeilingC:   ex.Shipment.TempCeilingC,
				OvershootC:     ex.PredictedTempC - ex.Shipment.TempCeilingC,
				SLA:            ex.Shipment.SLA,
			})
		}
	}
	return report
}

// StrictImpossible reports whether any pre-solve exclusion must fail the
// whole job.
func StrictImpossible(excluded []Exclusion) bool {
	for _, ex := range excluded {
		if ex.FailsJob {
			return true
		}
	}
	return false
}
