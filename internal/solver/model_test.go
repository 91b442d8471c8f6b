package solver

import (
	"math"
	"testing"

	"coldchain-dispatch-service/internal/domain"
)

// Test geometry, all reachable from the depot at 30 km/h:
// near is ~2.42 km (5 min), nearTwo ~2.72 km (5 min), far ~15.01 km (30 min),
// veryFar ~45.00 km (90 min).
var (
	testDepot    = domain.Coordinates{Lat: 25.033, Lon: 121.565}
	coordNear    = domain.Coordinates{Lat: 25.050, Lon: 121.580}
	coordNearTwo = domain.Coordinates{Lat: 25.052, Lon: 121.582}
	coordFar     = domain.Coordinates{Lat: 25.168, Lon: 121.565}
	coordVeryFar = domain.Coordinates{Lat: 25.4377, Lon: 121.565}
)

func testParams() Params {
	return Params{
		AverageSpeedKmh:      30,
		VehicleFixedCost:     50000,
		TempViolationPenalty: 100000,
		LateDeliveryPenalty:  1000,
		DistanceCostPerKm:    10,
		InfeasibleCost:       10_000_000,
		SpanCoeff:            10,
	}
}

func testVehicle(id int64) domain.Vehicle {
	return domain.Vehicle{
		ID:                id,
		LicensePlate:      "TST-001",
		DriverName:        "A. Driver",
		CapacityWeightKg:  1000,
		CapacityVolumeM3:  10,
		Insulation:        domain.InsulationStandard,
		Door:              domain.DoorRoll,
		HasCurtain:        true,
		CoolingRatePerMin: -2.5,
		Status:            domain.VehicleAvailable,
	}
}

func testShipment(id int64, coord domain.Coordinates) domain.Shipment {
	return domain.Shipment{
		ID:             id,
		CustomerName:   "Customer",
		Address:        "1 Test Rd",
		Coord:          coord,
		WeightKg:       100,
		VolumeM3:       1,
		Windows:        []domain.TimeWindow{{StartMin: 480, EndMin: 600}},
		ServiceMinutes: 15,
		TempCeilingC:   5,
		SLA:            domain.SLAStrict,
		Priority:       50,
		Status:         domain.ShipmentPending,
	}
}

func testInput(vehicles []domain.Vehicle, shipments []domain.Shipment) BuildInput {
	return BuildInput{
		DepotCoord:    testDepot,
		DepotOpenMin:  0,
		DepotCloseMin: 1439,
		Vehicles:      vehicles,
		Shipments:     shipments,
		DepartureMin:  480,
		AmbientC:      30,
		InitialTempC:  -5,
		Strategy:      domain.StrategyMinimizeVehicles,
	}
}

func TestBuildRejectsEmptySnapshot(t *testing.T) {
	_, err := Build(testInput(nil, []domain.Shipment{testShipment(1, coordNear)}), testParams())
	if domain.KindOf(err) != domain.KindPreconditionFailure {
		t.Fatalf("no vehicles: want precondition failure, got %v", err)
	}

	_, err = Build(testInput([]domain.Vehicle{testVehicle(1)}, nil), testParams())
	if domain.KindOf(err) != domain.KindPreconditionFailure {
		t.Fatalf("no shipments: want precondition failure, got %v", err)
	}
}

func TestBuildRejectsBadWindows(t *testing.T) {
	s := testShipment(1, coordNear)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 540}, {StartMin: 600, EndMin: 660}, {StartMin: 700, EndMin: 760}}
	_, err := Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{s}), testParams())
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("three windows: want validation error, got %v", err)
	}

	s.Windows = []domain.TimeWindow{{StartMin: 600, EndMin: 600}}
	_, err = Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{s}), testParams())
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("empty window: want validation error, got %v", err)
	}
}

func TestBuildScreensUnreachableWindow(t *testing.T) {
	// 30 minutes of travel against a window that closes at 08:05.
	s := testShipment(7, coordFar)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 485}}

	m, err := Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{s}), testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(m.Nodes) != 1 {
		t.Fatalf("screened shipment should leave only the depot node, got %d nodes", len(m.Nodes))
	}
	if len(m.Excluded) != 1 {
		t.Fatalf("want 1 exclusion, got %d", len(m.Excluded))
	}
	ex := m.Excluded[0]
	if ex.FailsJob {
		t.Fatal("window impossibility must not fail the job")
	}
	if len(ex.Reasons) != 2 {
		t.Fatalf("want TIME_WINDOW and STRICT_SLA reasons, got %+v", ex.Reasons)
	}
	if ex.Reasons[0].Type != domain.DiagTimeWindow {
		t.Fatalf("first reason: want %s, got %s", domain.DiagTimeWindow, ex.Reasons[0].Type)
	}
	if ex.Reasons[1].Type != domain.DiagStrictSLA {
		t.Fatalf("second reason: want %s, got %s", domain.DiagStrictSLA, ex.Reasons[1].Type)
	}
}

func TestBuildScreensTemperatureImpossible(t *testing.T) {
	// 90 minutes at ambient 40 with basic insulation and no cooling lifts the
	// cargo from -5 to 1.75, over a 0 degree ceiling on every vehicle.
	hot := testVehicle(1)
	hot.Insulation = domain.InsulationBasic
	hot.Door = domain.DoorSwing
	hot.HasCurtain = false
	hot.CoolingRatePerMin = 0

	s := testShipment(3, coordVeryFar)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 900}}
	s.TempCeilingC = 0
	s.SLA = domain.SLAStandard

	in := testInput([]domain.Vehicle{hot}, []domain.Shipment{s})
	in.AmbientC = 40

	m, err := Build(in, testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(m.Excluded) != 1 {
		t.Fatalf("want 1 exclusion, got %d", len(m.Excluded))
	}
	ex := m.Excluded[0]
	if ex.FailsJob {
		t.Fatal("STANDARD temperature impossibility must not fail the job")
	}
	if ex.Reasons[0].Type != domain.DiagTemperature {
		t.Fatalf("want %s reason, got %s", domain.DiagTemperature, ex.Reasons[0].Type)
	}
	if math.Abs(ex.PredictedTempC-1.75) > 1e-9 {
		t.Fatalf("predicted arrival temp: want 1.75, got %v", ex.PredictedTempC)
	}

	s.SLA = domain.SLAStrict
	in.Shipments = []domain.Shipment{s}
	m, err = Build(in, testParams())
	if err != nil {
		t.Fatalf("build strict: %v", err)
	}
	if !m.Excluded[0].FailsJob {
		t.Fatal("STRICT temperature impossibility must fail the job")
	}
	if !StrictImpossible(m.Excluded) {
		t.Fatal("StrictImpossible should report the failing exclusion")
	}
}

func TestBuildFixedCostFollowsStrategy(t *testing.T) {
	v := []domain.Vehicle{testVehicle(1)}
	s := []domain.Shipment{testShipment(1, coordNear)}

	m, err := Build(testInput(v, s), testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Boost 10*(N+1)*maxArc = 10*2*2420 = 48400 stays under the configured
	// fixed cost, so the configured value wins.
	if got := m.Vehicles[0].FixedCost; got != 50000 {
		t.Fatalf("minimize-vehicles fixed cost: want 50000, got %d", got)
	}

	in := testInput(v, []domain.Shipment{testShipment(1, coordVeryFar)})
	m, err = Build(in, testParams())
	if err != nil {
		t.Fatalf("build far: %v", err)
	}
	if got := m.Vehicles[0].FixedCost; got <= 50000 {
		t.Fatalf("long arcs must lift the fixed cost above the configured value, got %d", got)
	}

	in = testInput(v, s)
	in.Strategy = domain.StrategyMinimizeDistance
	m, err = Build(in, testParams())
	if err != nil {
		t.Fatalf("build distance strategy: %v", err)
	}
	if got := m.Vehicles[0].FixedCost; got != 0 {
		t.Fatalf("minimize-distance fixed cost: want 0, got %d", got)
	}
}

func TestBuildDropPenalties(t *testing.T) {
	strict := testShipment(1, coordNear)
	low := testShipment(2, coordNear)
	low.SLA = domain.SLAStandard
	low.Priority = 30
	high := testShipment(3, coordNear)
	high.SLA = domain.SLAStandard
	high.Priority = 90

	m, err := Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{strict, low, high}), testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := m.Nodes[1].DropPenalty; got != 10_000_000 {
		t.Fatalf("strict drop penalty: want 10000000, got %d", got)
	}
	if got := m.Nodes[2].DropPenalty; got != 46500 {
		t.Fatalf("priority 30 drop penalty: want 46500, got %d", got)
	}
	if got := m.Nodes[3].DropPenalty; got != 136500 {
		t.Fatalf("priority 90 drop penalty: want 136500, got %d", got)
	}
	if m.Nodes[2].DropPenalty >= m.Nodes[3].DropPenalty {
		t.Fatal("higher priority must carry the larger drop penalty")
	}
}

func TestBuildDemandScaling(t *testing.T) {
	s := testShipment(1, coordNear)
	s.WeightKg = 12.5
	s.VolumeM3 = 0.75

	m, err := Build(testInput([]domain.Vehicle{testVehicle(1)}, []domain.Shipment{s}), testParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := m.Nodes[1].DemandW; got != 12500 {
		t.Fatalf("weight demand: want 12500 g, got %d", got)
	}
	if got := m.Nodes[1].DemandV; got != 750 {
		t.Fatalf("volume demand: want 750 l, got %d", got)
	}
	if got := m.Vehicles[0].CapW; got != 1_000_000 {
		t.Fatalf("vehicle weight capacity: want 1000000 g, got %d", got)
	}
}
