package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
)

// GoogleProvider calls the Google Maps Directions and Distance Matrix JSON
// APIs. It reports provider-side errors to the caller; absorbing them into
// straight-line estimates is the chain's job, not this adapter's.
//
// The provider is safe for concurrent use.
type GoogleProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func NewGoogleProvider(apiKey, baseURL string, timeout time.Duration) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoogleProvider{
		session: &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

type directionsResult struct {
	DistanceMeters  int
	DurationSeconds int
	Coordinates     []domain.Coordinate
	// WaypointOrder holds indices into the requested waypoint list in the
	// provider's optimized visiting order.
	WaypointOrder []int
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
		WaypointOrder []int `json:"waypoint_order"`
	} `json:"routes"`
}

// latLng renders a coordinate in the lat,lng order Google expects.
func latLng(c domain.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lon)
}

// directions fetches a driving route, optionally with waypoint optimization.
func (g *GoogleProvider) directions(
	ctx context.Context,
	origin, destination domain.Coordinate,
	waypoints []domain.Coordinate,
	optimize bool,
) (directionsResult, error) {
	q := url.Values{}
	q.Set("origin", latLng(origin))
	q.Set("destination", latLng(destination))
	q.Set("key", g.apiKey)

	if len(waypoints) > 0 {
		parts := make([]string, 0, len(waypoints))
		for _, w := range waypoints {
			parts = append(parts, latLng(w))
		}
		wp := strings.Join(parts, "|")
		if optimize {
			wp = "optimize:true|" + wp
		}
		q.Set("waypoints", wp)
	}

	endpoint := g.baseURL + "/maps/api/directions/json?" + q.Encode()

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, endpoint)
	})
	if err != nil {
		return directionsResult{}, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return directionsResult{}, fmt.Errorf("decode directions response: %w", err)
	}

	if dr.Status != "OK" || len(dr.Routes) == 0 {
		return directionsResult{}, fmt.Errorf(
			"directions status %q: %s", dr.Status, dr.ErrorMessage,
		)
	}

	route := dr.Routes[0]

	var meters, seconds int
	for _, leg := range route.Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}

	return directionsResult{
		DistanceMeters:  meters,
		DurationSeconds: seconds,
		Coordinates:     decodePolyline(route.OverviewPolyline.Points),
		WaypointOrder:   route.WaypointOrder,
	}, nil
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// distanceMatrix fetches all origin x destination pairs in a single call.
func (g *GoogleProvider) distanceMatrix(
	ctx context.Context,
	origins, destinations []domain.Coordinate,
) ([][]ports.DistanceResult, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return [][]ports.DistanceResult{}, nil
	}

	originParts := make([]string, 0, len(origins))
	for _, o := range origins {
		originParts = append(originParts, latLng(o))
	}
	destParts := make([]string, 0, len(destinations))
	for _, d := range destinations {
		destParts = append(destParts, latLng(d))
	}

	q := url.Values{}
	q.Set("origins", strings.Join(originParts, "|"))
	q.Set("destinations", strings.Join(destParts, "|"))
	q.Set("key", g.apiKey)

	endpoint := g.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode distance matrix response: %w", err)
	}

	if mr.Status != "OK" {
		return nil, fmt.Errorf(
			"distance matrix status %q: %s", mr.Status, mr.ErrorMessage,
		)
	}

	if len(mr.Rows) != len(origins) {
		return nil, fmt.Errorf(
			"distance matrix rows do not match origins: rows=%d origins=%d",
			len(mr.Rows), len(origins),
		)
	}

	out := make([][]ports.DistanceResult, 0, len(mr.Rows))
	for i, row := range mr.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf(
				"distance matrix row %d length %d does not match destinations %d",
				i, len(row.Elements), len(destinations),
			)
		}

		results := make([]ports.DistanceResult, 0, len(row.Elements))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				return nil, fmt.Errorf(
					"distance matrix element (%d,%d) status %q", i, j, el.Status,
				)
			}
			results = append(results, ports.DistanceResult{
				DistanceMeters:  el.Distance.Value,
				DurationSeconds: el.Duration.Value,
			})
		}
		out = append(out, results)
	}

	return out, nil
}
