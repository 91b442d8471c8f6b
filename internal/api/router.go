package api

import (
	"net/http"

	"coldchain-dispatch-service/internal/api/handlers"
	"coldchain-dispatch-service/internal/config"
	"coldchain-dispatch-service/internal/ports"
	"coldchain-dispatch-service/internal/worker"
)

// Deps carries every port the HTTP edge talks to.
type Deps struct {
	Jobs      ports.JobRepository
	Routes    ports.RouteRepository
	Vehicles  ports.VehicleRepository
	Shipments ports.ShipmentRepository
	Depots    ports.DepotRepository
	Queue     ports.TaskQueue
	Cancels   *worker.Cancels
	Cfg       config.Config
}

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	optimize := &handlers.OptimizeHandler{
		Jobs:      d.Jobs,
		Vehicles:  d.Vehicles,
		Shipments: d.Shipments,
		Depots:    d.Depots,
		Queue:     d.Queue,
		Cfg:       d.Cfg,
	}
	jobs := &handlers.JobHandler{Jobs: d.Jobs, Cancels: d.Cancels}
	estimate := &handlers.EstimateHandler{Vehicles: d.Vehicles, Shipments: d.Shipments}
	routes := &handlers.RouteHandler{Routes: d.Routes, Jobs: d.Jobs, Depots: d.Depots}
	health := &handlers.HealthHandler{Queue: d.Queue}

	mux.HandleFunc("GET /health", health.Check)

	mux.HandleFunc("POST /api/v1/optimize", optimize.Create)
	mux.HandleFunc("GET /api/v1/optimize/jobs", jobs.List)
	mux.HandleFunc("POST /api/v1/optimize/quick-estimate", estimate.Quick)
	mux.HandleFunc("GET /api/v1/optimize/{job_id}", jobs.Get)
	mux.HandleFunc("POST /api/v1/optimize/{job_id}/cancel", jobs.Cancel)
	mux.HandleFunc("GET /api/v1/optimize/{job_id}/violations", jobs.Violations)

	mux.HandleFunc("GET /api/v1/routes", routes.List)
	mux.HandleFunc("GET /api/v1/routes/map-data", routes.MapData)
	mux.HandleFunc("GET /api/v1/routes/{id}", routes.Get)
	mux.HandleFunc("PATCH /api/v1/routes/{id}/status", routes.UpdateStatus)

	return loggingMiddleware(mux)
}
