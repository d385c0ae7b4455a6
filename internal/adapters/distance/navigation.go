package distance

import (
	"net/url"
	"strings"

	"delivery-dispatch-service/internal/domain"
)

// NavigationURL builds a Google Maps turn-by-turn navigation link for a
// driver's route: origin, intermediate waypoints, final destination.
// Returns an empty string when there are no stops.
func NavigationURL(origin domain.Coordinate, stops []domain.Coordinate) string {
	if len(stops) == 0 {
		return ""
	}

	last := stops[len(stops)-1]

	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", latLng(origin))
	q.Set("destination", latLng(last))
	q.Set("travelmode", "driving")

	if len(stops) > 1 {
		parts := make([]string, 0, len(stops)-1)
		for _, s := range stops[:len(stops)-1] {
			parts = append(parts, latLng(s))
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}

	return "https://www.google.com/maps/dir/?" + q.Encode()
}
