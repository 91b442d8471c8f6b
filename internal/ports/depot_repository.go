package ports

import (
	"context"

	"coldchain-dispatch-service/internal/domain"
)

// Port: a boundary for resolving depots referenced by plan requests.
type DepotRepository interface {
	Get(ctx context.Context, id int64) (*domain.Depot, error)
	// Default returns the configured depot used when a request names none.
	Default(ctx context.Context) (*domain.Depot, error)
}
