// Package solver builds the canonical routing model, searches it, and
// assembles the resulting dispatch plan.
package solver

import (
	"fmt"
	"math"
	"sort"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/geo"
	"coldchain-dispatch-service/internal/thermo"
)

// Params are the solve-time tuning knobs, normally sourced from config.
type Params struct {
	AverageSpeedKmh      int
	VehicleFixedCost     int64
	TempViolationPenalty int64
	LateDeliveryPenalty  int64
	DistanceCostPerKm    int64
	InfeasibleCost       int64
	SpanCoeff            int64
	EnableLabor          bool
}

// DefaultSpanCoeff is the global-span coefficient on the time dimension that
// nudges the search toward earlier finishes once fleet and distance are
// settled.
const DefaultSpanCoeff = 10

// Node is one location in the canonical model. Index 0 is the depot; every
// shipment that survives the pre-solve screens maps to exactly one node.
type Node struct {
	Index        int
	ShipmentID   int64
	CustomerName string
	Address      string
	Coord        domain.Coordinates
	Windows      []domain.TimeWindow
	ServiceMin   int
	// Demands are integer grams and liters so capacity math stays exact.
	DemandW      int64
	DemandV      int64
	TempCeilingC float64
	SLA          domain.SLATier
	Priority     int
	// DropPenalty is the disjunction cost of leaving this node unserved.
	DropPenalty int64
}

// VehicleSpec is a vehicle normalized for search.
type VehicleSpec struct {
	ID           int64
	LicensePlate string
	DriverName   string
	CapW         int64
	CapV         int64
	FixedCost    int64
	Thermo       thermo.VehicleParams
	// LaborCapMin is the soft duty-minute bound; zero means uncapped.
	LaborCapMin int
}

// Exclusion is a shipment removed by a pre-solve screen, with diagnostics
// for the violations report.
type Exclusion struct {
	Shipment       domain.Shipment
	Reasons        []domain.Diagnostic
	PredictedTempC float64
	// FailsJob marks a STRICT temperature impossibility: the job fails with
	// an infeasibility verdict instead of completing around the shipment.
	FailsJob bool
}

// Model is the immutable canonical input to the search. All cost quantities
// are integers.
type Model struct {
	Nodes    []Node
	Dist     [][]int64
	Time     [][]int64
	Vehicles []VehicleSpec

	DepartureMin int
	HorizonMin   int
	AmbientC     float64
	InitialTempC float64
	Strategy     domain.Strategy
	Params       Params

	Excluded []Exclusion

	// MaxRouteDistM bounds any single route's length; used for the labor
	// overage penalty.
	MaxRouteDistM int64
}

// BuildInput is the snapshot a model is built from.
type BuildInput struct {
	DepotCoord    domain.Coordinates
	DepotOpenMin  int
	DepotCloseMin int
	Vehicles      []domain.Vehicle
	Shipments     []domain.Shipment
	DepartureMin  int
	AmbientC      float64
	InitialTempC  float64
	Strategy      domain.Strategy
	// LaborCapMin holds per-vehicle remaining duty minutes when the labor
	// dimension is enabled; missing entries mean uncapped.
	LaborCapMin map[int64]int
}

// Build normalizes a snapshot into the canonical model, running the
// pre-solve feasibility screens.
func Build(in BuildInput, p Params) (*Model, error) {
	if len(in.Vehicles) == 0 {
		return nil, domain.E(domain.KindPreconditionFailure, "no available vehicles")
	}
	if len(in.Shipments) == 0 {
		return nil, domain.E(domain.KindPreconditionFailure, "no pending shipments")
	}
	if in.DepartureMin < 0 || in.DepartureMin >= 24*60 {
		return nil, domain.Ef(domain.KindValidation, "departure minute %d out of range", in.DepartureMin)
	}
	if p.SpanCoeff == 0 {
		p.SpanCoeff = DefaultSpanCoeff
	}

	horizon := in.DepotCloseMin
	if horizon <= 0 || horizon > 24*60-1 {
		horizon = 24*60 - 1
	}

	for _, s := range in.Shipments {
		if len(s.Windows) == 0 || len(s.Windows) > 2 {
			return nil, domain.Ef(domain.KindValidation, "shipment %d has %d time windows, want 1 or 2", s.ID, len(s.Windows))
		}
		for _, w := range s.Windows {
			if w.StartMin >= w.EndMin {
				return nil, domain.Ef(domain.KindValidation, "shipment %d window start %d not before end %d", s.ID, w.StartMin, w.EndMin)
			}
		}
	}

	specs := buildVehicleSpecs(in, p)

	kept, excluded := screenShipments(in, specs, p)

	coords := make([]domain.Coordinates, 0, len(kept)+1)
	coords = append(coords, in.DepotCoord)
	for _, s := range kept {
		coords = append(coords, s.Coord)
	}
	mat := geo.BuildMatrices(coords, p.AverageSpeedKmh)

	var maxArc int64
	for i := range mat.DistanceM {
		for j := range mat.DistanceM[i] {
			if mat.DistanceM[i][j] > maxArc {
				maxArc = mat.DistanceM[i][j]
			}
		}
	}

	// Level-1 dominance: an extra vehicle must always cost more than any
	// distance saved, so the fixed cost is lifted above the longest
	// possible route.
	fixedCost := int64(0)
	if in.Strategy != domain.StrategyMinimizeDistance {
		fixedCost = 10 * int64(len(kept)+1) * maxArc
		if fixedCost < p.VehicleFixedCost {
			fixedCost = p.VehicleFixedCost
		}
	}
	for i := range specs {
		specs[i].FixedCost = fixedCost
	}

	nodes := make([]Node, 0, len(kept)+1)
	nodes = append(nodes, Node{
		Index:   0,
		Windows: []domain.TimeWindow{{StartMin: in.DepartureMin, EndMin: horizon}},
	})
	for i, s := range kept {
		windows := normalizeWindows(s.Windows, horizon)
		nodes = append(nodes, Node{
			Index:        i + 1,
			ShipmentID:   s.ID,
			CustomerName: s.CustomerName,
			Address:      s.Address,
			Coord:        s.Coord,
			Windows:      windows,
			ServiceMin:   s.ServiceMinutes,
			DemandW:      int64(math.Round(s.WeightKg * 1000)),
			DemandV:      int64(math.Round(s.VolumeM3 * 1000)),
			TempCeilingC: s.TempCeilingC,
			SLA:          s.SLA,
			Priority:     s.Priority,
			DropPenalty:  dropPenalty(s, p),
		})
	}

	return &Model{
		Nodes:         nodes,
		Dist:          mat.DistanceM,
		Time:          mat.TimeMin,
		Vehicles:      specs,
		DepartureMin:  in.DepartureMin,
		HorizonMin:    horizon,
		AmbientC:      in.AmbientC,
		InitialTempC:  in.InitialTempC,
		Strategy:      in.Strategy,
		Params:        p,
		Excluded:      excluded,
		MaxRouteDistM: int64(len(nodes)) * maxArc,
	}, nil
}

func buildVehicleSpecs(in BuildInput, p Params) []VehicleSpec {
	specs := make([]VehicleSpec, 0, len(in.Vehicles))
	for _, v := range in.Vehicles {
		spec := VehicleSpec{
			ID:           v.ID,
			LicensePlate: v.LicensePlate,
			DriverName:   v.DriverName,
			CapW:         int64(math.Round(v.CapacityWeightKg * 1000)),
			CapV:         int64(math.Round(v.CapacityVolumeM3 * 1000)),
			Thermo: thermo.VehicleParams{
				InsulationK:       v.Insulation.Coefficient(),
				DoorCoeff:         v.Door.Coefficient(),
				HasCurtain:        v.HasCurtain,
				CoolingRatePerMin: v.CoolingRatePerMin,
			},
		}
		if p.EnableLabor {
			if limit, ok := in.LaborCapMin[v.ID]; ok {
				spec.LaborCapMin = limit
			}
		}
		specs = append(specs, spec)
	}
	// Deterministic vehicle ordering regardless of snapshot order.
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// dropPenalty prices leaving a shipment unserved. STRICT shipments carry the
// infeasibility cost; STANDARD shipments scale with priority so higher
// priority resists dropping.
func dropPenalty(s domain.Shipment, p Params) int64 {
	if s.SLA == domain.SLAStrict {
		return p.InfeasibleCost
	}
	base := p.VehicleFixedCost * 3
	return base * int64(s.Priority+1) / 100
}

// screenShipments removes shipments no vehicle could ever serve, producing
// diagnostics. Window screens exclude and diagnose; a STRICT temperature
// impossibility additionally fails the job.
func screenShipments(in BuildInput, specs []VehicleSpec, p Params) ([]domain.Shipment, []Exclusion) {
	kept := make([]domain.Shipment, 0, len(in.Shipments))
	var excluded []Exclusion

	for _, s := range in.Shipments {
		travelKm := geo.HaversineKm(in.DepotCoord, s.Coord)
		travelMin := int(math.Round(geo.TravelMinutes(travelKm, p.AverageSpeedKmh)))
		earliest := in.DepartureMin + travelMin

		if !windowReachable(s, earliest) {
			reasons := []domain.Diagnostic{{
				Type:            domain.DiagTimeWindow,
				Message:         fmt.Sprintf("no vehicle can reach shipment %d within any delivery window", s.ID),
				Parameter:       "time_window",
				CurrentValue:    fmt.Sprintf("earliest arrival %s", domain.FormatClock(earliest)),
				ConstraintValue: fmt.Sprintf("latest service start %s", domain.FormatClock(latestServiceStart(s))),
			}}
			if s.SLA == domain.SLAStrict {
				reasons = append(reasons, domain.Diagnostic{
					Type:            domain.DiagStrictSLA,
					Message:         fmt.Sprintf("shipment %d carries a STRICT service level", s.ID),
					Parameter:       "sla_tier",
					CurrentValue:    string(domain.SLAStrict),
					ConstraintValue: "hard time window",
				})
			}
			excluded = append(excluded, Exclusion{Shipment: s, Reasons: reasons})
			continue
		}

		if bestArrival, breach := temperatureImpossible(in, specs, s, travelMin); breach {
			reasons := []domain.Diagnostic{{
				Type:            domain.DiagTemperature,
				Message:         fmt.Sprintf("predicted arrival temperature %.2f°C exceeds ceiling %.2f°C on every vehicle", bestArrival, s.TempCeilingC),
				Parameter:       "temp_ceiling",
				CurrentValue:    fmt.Sprintf("%.2f", bestArrival),
				ConstraintValue: fmt.Sprintf("%.2f", s.TempCeilingC),
			}}
			excluded = append(excluded, Exclusion{
				Shipment:       s,
				Reasons:        reasons,
				PredictedTempC: bestArrival,
				FailsJob:       s.SLA == domain.SLAStrict,
			})
			continue
		}

		kept = append(kept, s)
	}

	return kept, excluded
}

func windowReachable(s domain.Shipment, earliestArrival int) bool {
	for _, w := range s.Windows {
		start := earliestArrival
		if w.StartMin > start {
			start = w.StartMin
		}
		if w.FitsDelivery(start, s.ServiceMinutes) {
			return true
		}
	}
	return false
}

func latestServiceStart(s domain.Shipment) int {
	latest := 0
	for _, w := range s.Windows {
		if v := w.EndMin - s.ServiceMinutes; v > latest {
			latest = v
		}
	}
	return latest
}

// temperatureImpossible checks whether even the best-case direct leg from
// the depot breaches the shipment's ceiling for every vehicle.
func temperatureImpossible(in BuildInput, specs []VehicleSpec, s domain.Shipment, travelMin int) (float64, bool) {
	best := math.Inf(1)
	for _, v := range specs {
		temps := thermo.Track(in.InitialTempC, in.AmbientC, v.Thermo, []thermo.Leg{{
			TravelMin:    float64(travelMin),
			ServiceMin:   float64(s.ServiceMinutes),
			TempCeilingC: s.TempCeilingC,
		}})
		if arr := temps.Stops[0].ArrivalTempC; arr < best {
			best = arr
		}
	}
	return best, best > s.TempCeilingC
}

func normalizeWindows(ws []domain.TimeWindow, horizon int) []domain.TimeWindow {
	out := make([]domain.TimeWindow, 0, len(ws))
	for _, w := range ws {
		if w.EndMin > horizon {
			w.EndMin = horizon
		}
		if w.StartMin < 0 {
			w.StartMin = 0
		}
		if w.StartMin < w.EndMin {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	return out
}
