package ports

import (
	"context"

	"coldchain-dispatch-service/internal/domain"
)

// Port: a boundary for reading the fleet snapshot.
type VehicleRepository interface {
	// Retrieve all vehicles currently available for dispatch.
	ListAvailable(ctx context.Context) ([]domain.Vehicle, error)
}
