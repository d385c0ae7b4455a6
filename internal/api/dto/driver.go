package dto

import "time"

type PointResponse struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type UpdateLocationRequest struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type RouteResponse struct {
	DriverID        string          `json:"driver_id"`
	RouteSequence   []string        `json:"route_sequence"`
	Coordinates     []PointResponse `json:"coordinates"`
	LegDistances    []int           `json:"leg_distances_meters"`
	LegDurations    []int           `json:"leg_durations_seconds"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	DurationMinutes int             `json:"duration_minutes"`
	Supplier        PointResponse   `json:"supplier_location"`
	NavigationURL   string          `json:"navigation_url"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type NearbyDriverResponse struct {
	DriverID   string        `json:"driver_id"`
	Location   PointResponse `json:"location"`
	DistanceKm float64       `json:"distance_km"`
}

type NearbyDriversResponse struct {
	Drivers []NearbyDriverResponse `json:"drivers"`
}

type ZoneResponse struct {
	Polygon []PointResponse `json:"polygon"`
}

type ZoneContainsResponse struct {
	Contains bool `json:"contains"`
}

type FeeQuoteResponse struct {
	DistanceKm float64 `json:"distance_km"`
	Fee        int     `json:"fee"`
}
