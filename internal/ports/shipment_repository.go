package ports

import (
	"context"

	"coldchain-dispatch-service/internal/domain"
)

// Port: a boundary for reading the shipment snapshot.
type ShipmentRepository interface {
	// Retrieve pending shipments, optionally restricted to one plan date.
	// An empty planDate returns every pending shipment.
	ListPending(ctx context.Context, planDate string) ([]domain.Shipment, error)
}
