// Package thermo predicts cargo temperature along a route.
//
// The model is a deterministic walk: driving raises cargo temperature toward
// ambient through the insulation, active refrigeration pulls it down, and
// each door-open service period adds a rise scaled by the door coefficient.
// All formulas take hours; callers pass minutes and the conversion happens
// here, in one place.
package thermo

// VehicleParams are the thermodynamic characteristics of one vehicle.
type VehicleParams struct {
	// InsulationK is the fraction of the ambient-cargo gradient absorbed
	// per hour of driving.
	InsulationK float64
	// DoorCoeff scales the service-time rise; a strip curtain halves it.
	DoorCoeff  float64
	HasCurtain bool
	// CoolingRatePerMin is the active refrigeration rate (°C/min, negative).
	// Zero disables cooling.
	CoolingRatePerMin float64
}

// Leg is one travel-then-service segment of a route.
type Leg struct {
	TravelMin    float64
	ServiceMin   float64
	TempCeilingC float64
}

// StopTemp is the predicted temperature profile at one stop.
type StopTemp struct {
	TransitRiseC    float64
	CoolingAppliedC float64
	ArrivalTempC    float64
	ServiceRiseC    float64
	DepartureTempC  float64
	Feasible        bool
	OvershootC      float64
}

// RouteTemps is the tracker verdict for a whole route.
type RouteTemps struct {
	InitialTempC    float64
	FinalTempC      float64
	MaxArrivalTempC float64
	Feasible        bool
	Stops           []StopTemp
}

// Track walks a route leg by leg and predicts per-stop temperatures.
//
// For each leg, with t_drive and t_svc in hours and T the running cargo
// temperature:
//
//	rise    = t_drive · (ambient − T) · K
//	cooling = t_drive · R            (when R < 0)
//	T_arr   = T + rise + cooling
//	svcRise = t_svc · C · (1 − 0.5·curtain)
//	T_dep   = T_arr + svcRise
//
// A stop is feasible when T_arr does not exceed its ceiling; the route is
// feasible when every stop is. Track has no side effects.
func Track(initialTempC, ambientTempC float64, v VehicleParams, legs []Leg) RouteTemps {
	out := RouteTemps{
		InitialTempC:    initialTempC,
		FinalTempC:      initialTempC,
		MaxArrivalTempC: initialTempC,
		Feasible:        true,
		Stops:           make([]StopTemp, 0, len(legs)),
	}

	curtain := 0.0
	if v.HasCurtain {
		curtain = 1.0
	}

	cur := initialTempC
	for i, leg := range legs {
		driveHours := leg.TravelMin / 60.0
		svcHours := leg.ServiceMin / 60.0

		rise := driveHours * (ambientTempC - cur) * v.InsulationK

		cooling := 0.0
		if v.CoolingRatePerMin < 0 {
			cooling = driveHours * v.CoolingRatePerMin
		}

		arrival := cur + rise + cooling
		svcRise := svcHours * v.DoorCoeff * (1 - 0.5*curtain)
		departure := arrival + svcRise

		stop := StopTemp{
			TransitRiseC:    rise,
			CoolingAppliedC: cooling,
			ArrivalTempC:    arrival,
			ServiceRiseC:    svcRise,
			DepartureTempC:  departure,
			Feasible:        arrival <= leg.TempCeilingC,
		}
		if !stop.Feasible {
			stop.OvershootC = arrival - leg.TempCeilingC
			out.Feasible = false
		}
		out.Stops = append(out.Stops, stop)

		if i == 0 || arrival > out.MaxArrivalTempC {
			out.MaxArrivalTempC = arrival
		}
		cur = departure
	}

	out.FinalTempC = cur
	return out
}
