package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"coldchain-dispatch-service/internal/api/dto"
	"coldchain-dispatch-service/internal/config"
	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

// OptimizeHandler accepts plan requests, freezes their parameters onto a job
// record and hands the job id to the worker queue.
type OptimizeHandler struct {
	Jobs      ports.JobRepository
	Vehicles  ports.VehicleRepository
	Shipments ports.ShipmentRepository
	Depots    ports.DepotRepository
	Queue     ports.TaskQueue
	Cfg       config.Config
}

func (h *OptimizeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	planDate, err := parsePlanDate(req.PlanDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	departure := req.PlannedDepartureTime
	if departure == "" {
		departure = h.Cfg.DefaultDepartureTime
	}
	departureMin, err := domain.ParseClock(departure)
	if err != nil {
		writeError(w, r, domain.Ef(domain.KindValidation, "planned_departure_time must be HH:MM, got %q", departure))
		return
	}

	params := dto.OptimizeParameters{}
	if req.Parameters != nil {
		params = *req.Parameters
	}

	limit := params.TimeLimitSeconds
	if limit == 0 {
		limit = h.Cfg.SolverTimeLimitDefault
	}
	if limit < 10 || limit > h.Cfg.SolverTimeLimitMax {
		writeError(w, r, domain.Ef(domain.KindValidation,
			"time_limit_seconds must be between 10 and %d", h.Cfg.SolverTimeLimitMax))
		return
	}

	strategy := domain.Strategy(params.Strategy)
	if strategy == "" {
		strategy = domain.StrategyMinimizeVehicles
	}
	if !domain.ValidStrategy(strategy) {
		writeError(w, r, domain.Ef(domain.KindValidation,
			"strategy must be MINIMIZE_VEHICLES or MINIMIZE_DISTANCE, got %q", params.Strategy))
		return
	}

	ambient := h.Cfg.DefaultAmbientTemp
	if params.AmbientTemperature != nil {
		ambient = *params.AmbientTemperature
	}
	initial := h.Cfg.DefaultInitialCargoTemp
	if params.InitialVehicleTemp != nil {
		initial = *params.InitialVehicleTemp
	}

	depotLat, depotLon, err := h.resolveDepot(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vehicles, err := h.Vehicles.ListAvailable(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(vehicles) == 0 {
		writeError(w, r, domain.E(domain.KindPreconditionFailure, "no available vehicles for optimization"))
		return
	}

	shipments, err := h.Shipments.ListPending(ctx, planDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(shipments) == 0 {
		writeError(w, r, domain.E(domain.KindPreconditionFailure, "no pending shipments for optimization"))
		return
	}

	job := &domain.Job{
		ID:               uuid.NewString(),
		PlanDate:         planDate,
		State:            domain.JobPending,
		DepotLat:         depotLat,
		DepotLon:         depotLon,
		DepartureMin:     departureMin,
		AmbientTempC:     ambient,
		InitialCargoTemp: initial,
		TimeLimitSeconds: limit,
		Strategy:         strategy,
		VehicleCount:     len(vehicles),
		ShipmentCount:    len(shipments),
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.Jobs.Create(ctx, job); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Queue.Enqueue(ctx, job.ID); err != nil {
		_, _ = h.Jobs.MarkFailed(ctx, job.ID, domain.KindInternal, "could not enqueue job", nil)
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.OptimizeResponse{
		JobID:         job.ID,
		Status:        string(domain.JobPending),
		Message:       "optimization job queued; poll GET /api/v1/optimize/{job_id}",
		ShipmentCount: len(shipments),
		VehicleCount:  len(vehicles),
	})
}

// resolveDepot picks the depot for the run: request coordinates win, then the
// configured depot row, then the process defaults.
func (h *OptimizeHandler) resolveDepot(r *http.Request, req *dto.OptimizeRequest) (float64, float64, error) {
	if (req.DepotLatitude == nil) != (req.DepotLongitude == nil) {
		return 0, 0, domain.E(domain.KindValidation, "depot_latitude and depot_longitude must be given together")
	}
	if req.DepotLatitude != nil {
		lat, lon := *req.DepotLatitude, *req.DepotLongitude
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return 0, 0, domain.E(domain.KindValidation, "depot coordinates out of range")
		}
		return lat, lon, nil
	}

	depot, err := h.Depots.Default(r.Context())
	if err == nil {
		return depot.Coord.Lat, depot.Coord.Lon, nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return h.Cfg.DefaultDepotLat, h.Cfg.DefaultDepotLon, nil
	}
	return 0, 0, err
}

func parsePlanDate(s string) (string, error) {
	if s == "" {
		return "", domain.E(domain.KindValidation, "plan_date is required")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", domain.Ef(domain.KindValidation, "plan_date must be YYYY-MM-DD, got %q", s)
	}
	return s, nil
}
