package domain

// InsulationGrade classifies a refrigerated body by how fast ambient heat
// leaks into the cargo space.
type InsulationGrade string

const (
	InsulationPremium  InsulationGrade = "PREMIUM"
	InsulationStandard InsulationGrade = "STANDARD"
	InsulationBasic    InsulationGrade = "BASIC"
)

// Coefficient returns the insulation coefficient K: the fraction of the
// ambient-to-cargo temperature gradient absorbed per hour of driving.
func (g InsulationGrade) Coefficient() float64 {
	switch g {
	case InsulationPremium:
		return 0.02
	case InsulationBasic:
		return 0.10
	default:
		return 0.05
	}
}

// DoorType classifies the cargo door, which controls how much heat enters
// while the door is open during service.
type DoorType string

const (
	DoorRoll  DoorType = "ROLL"
	DoorSwing DoorType = "SWING"
)

// Coefficient returns the door coefficient C applied to service-time rise.
func (d DoorType) Coefficient() float64 {
	switch d {
	case DoorRoll:
		return 0.8
	case DoorSwing:
		return 1.2
	default:
		return 1.0
	}
}

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInService   VehicleStatus = "IN_SERVICE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
)

// Vehicle is a refrigerated truck in the fleet. The thermodynamic fields
// (insulation, door, curtain, cooling rate) drive the per-route temperature
// prediction; capacities bound the load the solver may assign.
type Vehicle struct {
	ID               int64
	LicensePlate     string
	DriverName       string
	CapacityWeightKg float64
	CapacityVolumeM3 float64
	Insulation       InsulationGrade
	Door             DoorType
	HasCurtain       bool
	// CoolingRatePerMin is the active refrigeration rate in °C per minute;
	// zero or negative, zero meaning no active cooling.
	CoolingRatePerMin float64
	MinTempC          float64
	Status            VehicleStatus
}
