package dto

type StopResponse struct {
	ID                int64   `json:"id"`
	Sequence          int     `json:"sequence"`
	ShipmentID        int64   `json:"shipment_id"`
	CustomerName      string  `json:"customer_name"`
	Address           string  `json:"address"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	ArrivalTime       string  `json:"arrival_time"`
	DepartureTime     string  `json:"departure_time"`
	WaitMin           int     `json:"wait_min"`
	WindowIndex       int     `json:"window_index"`
	DistanceFromPrevM int64   `json:"distance_from_prev_m"`
	TravelMinFromPrev int     `json:"travel_min_from_prev"`
	ServiceMin        int     `json:"service_min"`
	TransitRiseC      float64 `json:"transit_rise_c"`
	ServiceRiseC      float64 `json:"service_rise_c"`
	CoolingAppliedC   float64 `json:"cooling_applied_c"`
	ArrivalTempC      float64 `json:"arrival_temp_c"`
	DepartureTempC    float64 `json:"departure_temp_c"`
	TempCeilingC      float64 `json:"temp_ceiling_c"`
	Feasible          bool    `json:"feasible"`
}

type RouteResponse struct {
	ID               int64          `json:"id"`
	JobID            string         `json:"job_id"`
	VehicleID        int64          `json:"vehicle_id"`
	LicensePlate     string         `json:"license_plate"`
	DriverName       string         `json:"driver_name"`
	RouteCode        string         `json:"route_code"`
	PlanDate         string         `json:"plan_date"`
	Status           string         `json:"status"`
	TotalDistanceM   int64          `json:"total_distance_m"`
	TotalDurationMin int            `json:"total_duration_min"`
	StopCount        int            `json:"stop_count"`
	InitialTempC     float64        `json:"initial_temp_c"`
	FinalTempC       float64        `json:"final_temp_c"`
	MaxTempC         float64        `json:"max_temp_c"`
	Feasible         bool           `json:"feasible"`
	Version          int            `json:"version"`
	Stops            []StopResponse `json:"stops,omitempty"`
}

type RouteListResponse struct {
	Items []RouteResponse `json:"items"`
	Total int             `json:"total"`
}

type RouteStatusUpdateRequest struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

type RouteStatusUpdateResponse struct {
	ID      int64  `json:"id"`
	Status  string `json:"status"`
	Version int    `json:"version"`
}

type MapPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type MapStop struct {
	Sequence      int     `json:"sequence"`
	ShipmentID    int64   `json:"shipment_id"`
	CustomerName  string  `json:"customer_name"`
	Address       string  `json:"address"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	ArrivalTime   string  `json:"arrival_time"`
	DepartureTime string  `json:"departure_time"`
	Temperature   float64 `json:"temperature"`
	TempLimit     float64 `json:"temp_limit"`
	Feasible      bool    `json:"feasible"`
}

type MapRoute struct {
	RouteID          int64     `json:"route_id"`
	VehicleID        int64     `json:"vehicle_id"`
	LicensePlate     string    `json:"license_plate"`
	TotalDistanceM   int64     `json:"total_distance_m"`
	TotalDurationMin int       `json:"total_duration_min"`
	Stops            []MapStop `json:"stops"`
}

type MapDataResponse struct {
	Depot  *MapPoint  `json:"depot"`
	Routes []MapRoute `json:"routes"`
}
