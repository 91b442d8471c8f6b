package handlers

import (
	"net/http"
	"strconv"

	"coldchain-dispatch-service/internal/api/dto"
	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

// RouteHandler serves persisted routes: listings, stop detail, the optimistic
// status update and the map projection.
type RouteHandler struct {
	Routes ports.RouteRepository
	Jobs   ports.JobRepository
	Depots ports.DepotRepository
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ports.RouteFilter{PlanDate: q.Get("plan_date"), JobID: q.Get("job_id")}

	routes, err := h.Routes.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := dto.RouteListResponse{Items: make([]dto.RouteResponse, 0, len(routes)), Total: len(routes)}
	for _, rt := range routes {
		res.Items = append(res.Items, toRouteResponse(rt))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	route, err := h.Routes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(route))
}

func (h *RouteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.RouteStatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	status := domain.RouteStatus(req.Status)
	if !validRouteStatus(status) {
		writeError(w, r, domain.Ef(domain.KindValidation, "unknown route status %q", req.Status))
		return
	}
	if req.Version < 1 {
		writeError(w, r, domain.E(domain.KindValidation, "version must be the version previously read"))
		return
	}

	if err := h.Routes.UpdateStatus(r.Context(), id, status, req.Version); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RouteStatusUpdateResponse{
		ID:      id,
		Status:  string(status),
		Version: req.Version + 1,
	})
}

func (h *RouteHandler) MapData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ports.RouteFilter{PlanDate: q.Get("plan_date"), JobID: q.Get("job_id")}
	if f.PlanDate == "" && f.JobID == "" {
		writeError(w, r, domain.E(domain.KindValidation, "plan_date or job_id is required"))
		return
	}

	var depot *dto.MapPoint
	if f.JobID != "" {
		job, err := h.Jobs.Get(r.Context(), f.JobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		depot = &dto.MapPoint{Lat: job.DepotLat, Lon: job.DepotLon}
	} else if d, err := h.Depots.Default(r.Context()); err == nil {
		depot = &dto.MapPoint{Lat: d.Coord.Lat, Lon: d.Coord.Lon}
	} else if !domain.IsKind(err, domain.KindNotFound) {
		writeError(w, r, err)
		return
	}

	routes, err := h.Routes.ListWithStops(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := dto.MapDataResponse{Depot: depot, Routes: make([]dto.MapRoute, 0, len(routes))}
	for _, rt := range routes {
		mr := dto.MapRoute{
			RouteID:          rt.ID,
			VehicleID:        rt.VehicleID,
			LicensePlate:     rt.LicensePlate,
			TotalDistanceM:   rt.TotalDistanceM,
			TotalDurationMin: rt.TotalDurationMin,
			Stops:            make([]dto.MapStop, 0, len(rt.Stops)),
		}
		for _, st := range rt.Stops {
			mr.Stops = append(mr.Stops, dto.MapStop{
				Sequence:      st.Sequence,
				ShipmentID:    st.ShipmentID,
				CustomerName:  st.CustomerName,
				Address:       st.Address,
				Lat:           st.Coord.Lat,
				Lon:           st.Coord.Lon,
				ArrivalTime:   domain.FormatClock(st.ArrivalMin),
				DepartureTime: domain.FormatClock(st.DepartureMin),
				Temperature:   st.ArrivalTempC,
				TempLimit:     st.TempCeilingC,
				Feasible:      st.Feasible,
			})
		}
		res.Routes = append(res.Routes, mr)
	}

	writeJSON(w, r, http.StatusOK, res)
}

func routeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.E(domain.KindValidation, "route id must be a positive integer")
	}
	return id, nil
}

func toRouteResponse(rt *domain.Route) dto.RouteResponse {
	res := dto.RouteResponse{
		ID:               rt.ID,
		JobID:            rt.JobID,
		VehicleID:        rt.VehicleID,
		LicensePlate:     rt.LicensePlate,
		DriverName:       rt.DriverName,
		RouteCode:        rt.RouteCode,
		PlanDate:         rt.PlanDate,
		Status:           string(rt.Status),
		TotalDistanceM:   rt.TotalDistanceM,
		TotalDurationMin: rt.TotalDurationMin,
		StopCount:        rt.StopCount,
		InitialTempC:     rt.InitialTempC,
		FinalTempC:       rt.FinalTempC,
		MaxTempC:         rt.MaxTempC,
		Feasible:         rt.Feasible,
		Version:          rt.Version,
	}
	for _, st := range rt.Stops {
		res.Stops = append(res.Stops, dto.StopResponse{
			ID:                st.ID,
			Sequence:          st.Sequence,
			ShipmentID:        st.ShipmentID,
			CustomerName:      st.CustomerName,
			Address:           st.Address,
			Lat:               st.Coord.Lat,
			Lon:               st.Coord.Lon,
			ArrivalTime:       domain.FormatClock(st.ArrivalMin),
			DepartureTime:     domain.FormatClock(st.DepartureMin),
			WaitMin:           st.WaitMin,
			WindowIndex:       st.WindowIndex,
			DistanceFromPrevM: st.DistanceFromPrevM,
			TravelMinFromPrev: st.TravelMinFromPrev,
			ServiceMin:        st.ServiceMin,
			TransitRiseC:      st.TransitRiseC,
			ServiceRiseC:      st.ServiceRiseC,
			CoolingAppliedC:   st.CoolingAppliedC,
			ArrivalTempC:      st.ArrivalTempC,
			DepartureTempC:    st.DepartureTempC,
			TempCeilingC:      st.TempCeilingC,
			Feasible:          st.Feasible,
		})
	}
	return res
}

func validRouteStatus(s domain.RouteStatus) bool {
	switch s {
	case domain.RoutePlanned, domain.RouteDispatched, domain.RouteInProgress,
		domain.RouteCompleted, domain.RouteCancelled:
		return true
	}
	return false
}
