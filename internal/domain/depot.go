package domain

// Depot is the single origin and terminus of every route in a plan. The
// operating window bounds the planning horizon.
type Depot struct {
	ID       int64
	Name     string
	Coord    Coordinates
	OpenMin  int
	CloseMin int
}
