package ports

import "context"

// Port: driver labor ledger used by the optional labor dimension.
type LaborRepository interface {
	// Usage returns minutes already worked by a vehicle's driver on the
	// plan date and over the trailing seven days ending on it.
	Usage(ctx context.Context, vehicleID int64, planDate string) (dayMin int, weekMin int, err error)
}
