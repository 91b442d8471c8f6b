package domain

// SLATier decides how hard a shipment's constraints are. STRICT shipments may
// never miss their window or temperature ceiling; STANDARD shipments can be
// dropped at a priority-scaled penalty.
type SLATier string

const (
	SLAStrict   SLATier = "STRICT"
	SLAStandard SLATier = "STANDARD"
)

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "PENDING"
	ShipmentAssigned  ShipmentStatus = "ASSIGNED"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

// TimeWindow is a delivery window in minutes of day, [StartMin, EndMin],
// StartMin < EndMin.
type TimeWindow struct {
	StartMin int
	EndMin   int
}

// FitsDelivery reports whether a delivery arriving at arrivalMin and taking
// serviceMin fits entirely inside this window.
func (w TimeWindow) FitsDelivery(arrivalMin, serviceMin int) bool {
	return arrivalMin >= w.StartMin && arrivalMin+serviceMin <= w.EndMin
}

// Shipment is a single cold-chain delivery order. A shipment carries one or
// two disjoint daily time windows and a cargo temperature ceiling that the
// predicted arrival temperature must not exceed.
type Shipment struct {
	ID             int64
	CustomerName   string
	Address        string
	Coord          Coordinates
	WeightKg       float64
	VolumeM3       float64
	Windows        []TimeWindow
	ServiceMinutes int
	TempCeilingC   float64
	TempFloorC     *float64
	SLA            SLATier
	Priority       int
	Status         ShipmentStatus
	PlanDate       string
}
