package solver

import (
	"math"
	"testing"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/thermo"
)

const testJobID = "1a2b3c4d-5e6f-4081-92a3-b4c5d6e7f809"

func TestAssembleSingleRoute(t *testing.T) {
	in := testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{testShipment(1, coordNear)})
	m, res := solveFor(t, in, testParams())

	plan := Assemble(AssembleInput{
		Model:             m,
		Result:            res,
		JobID:             testJobID,
		PlanDate:          "2026-01-15",
		VehiclesAvailable: 1,
		SolveSeconds:      0.42,
	})

	if len(plan.Routes) != 1 {
		t.Fatalf("want 1 route, got %d", len(plan.Routes))
	}
	r := plan.Routes[0]
	if r.RouteCode != "R-20260115-TST001-1a2b3c4d" {
		t.Fatalf("route code: got %q", r.RouteCode)
	}
	if r.VehicleID != 1 || r.LicensePlate != "TST-001" {
		t.Fatalf("vehicle identity: got %+v", r)
	}
	if r.Status != domain.RoutePlanned || r.Version != 1 {
		t.Fatalf("new routes start PLANNED at version 1, got %s v%d", r.Status, r.Version)
	}
	if r.TotalDistanceM != 4840 || r.TotalDurationMin != 25 || r.StopCount != 1 {
		t.Fatalf("route totals: got %+v", r)
	}
	if !r.Feasible {
		t.Fatal("route should be feasible")
	}
	if math.Abs(r.MaxTempC-(-5.0625)) > 1e-9 {
		t.Fatalf("max temp: want -5.0625, got %v", r.MaxTempC)
	}

	st := r.Stops[0]
	if st.Sequence != 1 || st.ShipmentID != 1 {
		t.Fatalf("stop identity: got %+v", st)
	}
	if st.ArrivalMin != 485 || st.DepartureMin != 500 || st.WaitMin != 0 || st.WindowIndex != 0 {
		t.Fatalf("stop timing: got %+v", st)
	}
	if st.DistanceFromPrevM != 2420 || st.TravelMinFromPrev != 5 || st.ServiceMin != 15 {
		t.Fatalf("stop travel: got %+v", st)
	}
	if math.Abs(st.DepartureTempC-(-4.9625)) > 1e-9 {
		t.Fatalf("departure temp: want -4.9625, got %v", st.DepartureTempC)
	}

	sum := plan.Summary
	if sum.SolverStatus != string(StatusFeasible) {
		t.Fatalf("solver status: got %s", sum.SolverStatus)
	}
	if sum.VehiclesAvailable != 1 || sum.VehiclesUsed != 1 {
		t.Fatalf("vehicle counts: got %+v", sum)
	}
	if sum.ShipmentsTotal != 1 || sum.ShipmentsAssigned != 1 || sum.ShipmentsUnassigned != 0 {
		t.Fatalf("shipment counts: got %+v", sum)
	}
	if sum.TotalDistanceM != 4840 || sum.TotalDurationMin != 25 {
		t.Fatalf("distance totals: got %+v", sum)
	}
	// 4.840 km at 10/km plus one vehicle at 50000.
	if sum.EstimatedCost != 50048 {
		t.Fatalf("estimated cost: want 50048, got %d", sum.EstimatedCost)
	}
	if !sum.AllRoutesFeasible {
		t.Fatal("summary should report all routes feasible")
	}
	if sum.SolveSeconds != 0.42 {
		t.Fatalf("solve seconds: got %v", sum.SolveSeconds)
	}

	if plan.StrictBreach {
		t.Fatal("no strict breach expected")
	}
	if !plan.Violations.Empty() {
		t.Fatalf("violations should be empty, got %+v", plan.Violations)
	}
	if got := plan.LaborMinutes[1]; got != 25 {
		t.Fatalf("labor minutes: want 25, got %d", got)
	}
}

func TestAssembleClassifiesCapacityDrop(t *testing.T) {
	v := testVehicle(1)
	v.CapacityWeightKg = 150
	near := testShipment(1, coordNear)
	near.SLA = domain.SLAStandard
	near.Priority = 80
	far := testShipment(2, coordNearTwo)
	far.SLA = domain.SLAStandard
	far.Priority = 95

	in := testInput([]domain.Vehicle{v}, []domain.Shipment{near, far})
	m, res := solveFor(t, in, testParams())

	plan := Assemble(AssembleInput{Model: m, Result: res, JobID: testJobID, PlanDate: "2026-01-15", VehiclesAvailable: 1})

	if len(plan.Violations.UnassignedShipments) != 1 {
		t.Fatalf("want 1 unassigned shipment, got %+v", plan.Violations.UnassignedShipments)
	}
	u := plan.Violations.UnassignedShipments[0]
	if u.ShipmentID != 1 || u.Priority != 80 {
		t.Fatalf("the lower-priority shipment should be the one dropped, got %+v", u)
	}
	if len(u.LikelyReasons) != 1 || u.LikelyReasons[0].Type != domain.DiagCapacityOrRouting {
		t.Fatalf("want a single %s reason, got %+v", domain.DiagCapacityOrRouting, u.LikelyReasons)
	}
	if plan.Summary.ShipmentsTotal != 2 || plan.Summary.ShipmentsAssigned != 1 || plan.Summary.ShipmentsUnassigned != 1 {
		t.Fatalf("summary counts: got %+v", plan.Summary)
	}
	if plan.Summary.AllRoutesFeasible {
		t.Fatal("a plan with unassigned shipments is not fully feasible")
	}
	if plan.StrictBreach {
		t.Fatal("dropping STANDARD shipments is not a strict breach")
	}
}

func TestAssembleCarriesScreenExclusions(t *testing.T) {
	blocked := testShipment(9, coordFar)
	blocked.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 485}}
	fine := testShipment(1, coordNear)

	in := testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{blocked, fine})
	m, res := solveFor(t, in, testParams())

	plan := Assemble(AssembleInput{Model: m, Result: res, JobID: testJobID, PlanDate: "2026-01-15", VehiclesAvailable: 1})

	if len(plan.Routes) != 1 || plan.Routes[0].Stops[0].ShipmentID != 1 {
		t.Fatalf("the reachable shipment should still be routed, got %+v", plan.Routes)
	}
	if len(plan.Violations.UnassignedShipments) != 1 {
		t.Fatalf("want 1 unassigned, got %+v", plan.Violations.UnassignedShipments)
	}
	u := plan.Violations.UnassignedShipments[0]
	if u.ShipmentID != 9 {
		t.Fatalf("unassigned shipment id: want 9, got %d", u.ShipmentID)
	}
	if u.LikelyReasons[0].Type != domain.DiagTimeWindow {
		t.Fatalf("want %s reason, got %+v", domain.DiagTimeWindow, u.LikelyReasons)
	}
	if plan.Summary.ShipmentsTotal != 2 || plan.Summary.ShipmentsAssigned != 1 {
		t.Fatalf("summary counts: got %+v", plan.Summary)
	}
}

func TestExclusionReportStrictTemperature(t *testing.T) {
	hot := testVehicle(1)
	hot.Insulation = domain.InsulationBasic
	hot.HasCurtain = false
	hot.CoolingRatePerMin = 0

	s := testShipment(3, coordVeryFar)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 900}}
	s.TempCeilingC = 0

	in := testInput([]domain.Vehicle{hot}, []domain.Shipment{s})
	in.AmbientC = 40

	m, err := Build(in, testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !StrictImpossible(m.Excluded) {
		t.Fatal("expected a job-failing exclusion")
	}

	report := ExclusionReport(m.Excluded)
	if len(report.TemperatureViolations) != 1 {
		t.Fatalf("want 1 temperature violation, got %+v", report.TemperatureViolations)
	}
	tv := report.TemperatureViolations[0]
	if tv.ShipmentID != 3 || tv.SLA != domain.SLAStrict {
		t.Fatalf("violation identity: got %+v", tv)
	}
	if math.Abs(tv.PredictedTempC-1.75) > 1e-9 || math.Abs(tv.OvershootC-1.75) > 1e-9 {
		t.Fatalf("predicted/overshoot: want 1.75/1.75, got %+v", tv)
	}
	if len(report.UnassignedShipments) != 1 {
		t.Fatalf("want the shipment listed unassigned too, got %+v", report.UnassignedShipments)
	}
}

func TestAssembleFlagsStrictBreachFromTracker(t *testing.T) {
	m, err := Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{testShipment(1, coordNear)}), testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// Hand-built result whose authoritative walk breaches the STRICT stop.
	res := &Result{
		Status: StatusFeasible,
		Routes: []VehicleRoute{{
			Vehicle:       0,
			Nodes:         []int{1},
			Schedule:      []StopSchedule{{Node: 1, ArrivalMin: 485, DepartureMin: 500, TravelMin: 5, DistanceM: 2420}},
			ReturnArrival: 505,
			DistanceM:     4840,
			DurationMin:   25,
			LaborMin:      25,
			Temps: thermo.RouteTemps{
				InitialTempC:    -5,
				FinalTempC:      6.2,
				MaxArrivalTempC: 6.0,
				Feasible:        false,
				Stops: []thermo.StopTemp{{
					ArrivalTempC:   6.0,
					DepartureTempC: 6.2,
					Feasible:       false,
					OvershootC:     1.0,
				}},
			},
		}},
	}

	plan := Assemble(AssembleInput{Model: m, Result: res, JobID: testJobID, PlanDate: "2026-01-15", VehiclesAvailable: 1})
	if !plan.StrictBreach {
		t.Fatal("a STRICT stop over its ceiling must flag the plan")
	}
	if len(plan.Violations.TemperatureViolations) != 1 {
		t.Fatalf("want 1 temperature violation, got %+v", plan.Violations.TemperatureViolations)
	}
	if plan.Summary.AllRoutesFeasible {
		t.Fatal("summary must not claim feasibility")
	}
}

func TestRouteCode(t *testing.T) {
	got := routeCode("2026-08-25", "ABC-123", "0f8fad5b-d9cb-469f-a165-70867728950e")
	if got != "R-20260825-ABC123-0f8fad5b" {
		t.Fatalf("route code: got %q", got)
	}
	if got := routeCode("2026-08-25", "AB 12", "job"); got != "R-20260825-AB12-job" {
		t.Fatalf("short job id: got %q", got)
	}
}
