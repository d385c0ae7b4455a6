package distance

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/ports"
)

var (
	supplier = domain.Coordinate{Lon: 120.9025, Lat: 14.4444}
	nearStop = domain.Coordinate{Lon: 120.9100, Lat: 14.4500}
	// ~190 km away, far beyond any prefilter threshold.
	farStop = domain.Coordinate{Lon: 122.5644, Lat: 13.4125}
)

// mapRouteCache is an in-memory RouteCache for chain tests.
type mapRouteCache struct {
	entries map[string]ports.CachedRoute
}

func newMapRouteCache() *mapRouteCache {
	return &mapRouteCache{entries: make(map[string]ports.CachedRoute)}
}

func (c *mapRouteCache) key(origin domain.Coordinate, dests []domain.Coordinate, optimize bool) string {
	k := pairKey(origin, origin)
	for _, d := range dests {
		k += pairKey(d, d)
	}
	if optimize {
		k += ":opt"
	}
	return k
}

func (c *mapRouteCache) Get(ctx context.Context, origin domain.Coordinate, dests []domain.Coordinate, optimize bool) (ports.CachedRoute, bool, error) {
	r, ok := c.entries[c.key(origin, dests, optimize)]
	return r, ok, nil
}

func (c *mapRouteCache) Set(ctx context.Context, origin domain.Coordinate, dests []domain.Coordinate, optimize bool, route ports.CachedRoute) error {
	c.entries[c.key(origin, dests, optimize)] = route
	return nil
}

func (c *mapRouteCache) InvalidateAll(ctx context.Context) error {
	c.entries = make(map[string]ports.CachedRoute)
	return nil
}

func (c *mapRouteCache) Stats(ctx context.Context) (ports.CacheStats, error) {
	return ports.CacheStats{Entries: len(c.entries)}, nil
}

func newTestGoogle(t *testing.T, handler http.HandlerFunc) (*GoogleProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGoogleProvider("test-key", srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("new google provider: %v", err)
	}
	return g, srv
}

func directionsHandler(meters, seconds int, calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"routes": []map[string]any{{
				"overview_polyline": map[string]any{"points": ""},
				"legs": []map[string]any{{
					"distance": map[string]any{"value": meters},
					"duration": map[string]any{"value": seconds},
				}},
			}},
		})
	}
}

func TestDrivingDistancePrefilterSkipsExternalCall(t *testing.T) {
	var calls atomic.Int64
	g, _ := newTestGoogle(t, directionsHandler(1000, 60, &calls))

	p := NewProvider(Options{External: g, AvgSpeedKmh: 30, PrefilterKm: 10})

	res, err := p.DrivingDistance(context.Background(), supplier, farStop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("external service called %d times for a prefiltered leg", calls.Load())
	}

	straightKm := geo.Haversine(supplier, farStop)
	wantMeters := int(math.Round(straightKm * 1000 * DefaultRoadFactor))
	if res.DistanceMeters != wantMeters {
		t.Fatalf("meters = %d, want %d", res.DistanceMeters, wantMeters)
	}
}

func TestDrivingDistanceUsesExternalAndCaches(t *testing.T) {
	var calls atomic.Int64
	g, _ := newTestGoogle(t, directionsHandler(1234, 300, &calls))

	cache := newMapRouteCache()
	p := NewProvider(Options{External: g, Cache: cache, AvgSpeedKmh: 30, PrefilterKm: 10})

	res, err := p.DrivingDistance(context.Background(), supplier, nearStop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DistanceMeters != 1234 || res.DurationSeconds != 300 {
		t.Fatalf("got %+v, want 1234m/300s", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("external calls = %d, want 1", calls.Load())
	}

	// Second lookup must hit the cache, not the service.
	res, err = p.DrivingDistance(context.Background(), supplier, nearStop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DistanceMeters != 1234 {
		t.Fatalf("cached meters = %d, want 1234", res.DistanceMeters)
	}
	if calls.Load() != 1 {
		t.Fatalf("external calls after cache hit = %d, want 1", calls.Load())
	}
}

func TestDrivingDistanceFallsBackOnServerError(t *testing.T) {
	g, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	p := NewProvider(Options{External: g, AvgSpeedKmh: 30, PrefilterKm: 10})

	res, err := p.DrivingDistance(context.Background(), supplier, nearStop)
	if err != nil {
		t.Fatalf("fallback must absorb the failure, got %v", err)
	}

	want := p.Estimator().Between(supplier, nearStop)
	if res != want {
		t.Fatalf("got %+v, want estimate %+v", res, want)
	}
}

func TestDrivingDistanceWithoutExternalProvider(t *testing.T) {
	p := NewProvider(Options{AvgSpeedKmh: 30, PrefilterKm: 10})

	res, err := p.DrivingDistance(context.Background(), supplier, nearStop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := p.Estimator().Between(supplier, nearStop)
	if res != want {
		t.Fatalf("got %+v, want estimate %+v", res, want)
	}
}

func TestBatchDistancesFallsBackPerPair(t *testing.T) {
	p := NewProvider(Options{AvgSpeedKmh: 30, PrefilterKm: 10})

	matrix, err := p.BatchDistances(
		context.Background(),
		[]domain.Coordinate{supplier, nearStop},
		[]domain.Coordinate{farStop},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matrix) != 2 || len(matrix[0]) != 1 {
		t.Fatalf("matrix shape = %dx%d, want 2x1", len(matrix), len(matrix[0]))
	}
	if matrix[0][0] != p.Estimator().Between(supplier, farStop) {
		t.Fatalf("matrix[0][0] = %+v is not the straight-line estimate", matrix[0][0])
	}
}

func TestOptimizeStopsUnavailableWithoutProvider(t *testing.T) {
	p := NewProvider(Options{AvgSpeedKmh: 30, PrefilterKm: 10})

	_, err := p.OptimizeStops(context.Background(), supplier, []domain.Coordinate{nearStop, farStop})
	if err == nil {
		t.Fatal("expected error without external provider")
	}
}

func TestOptimizeStopsUsesWaypointOrder(t *testing.T) {
	g, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"routes": []map[string]any{{
				"overview_polyline": map[string]any{"points": ""},
				"waypoint_order":    []int{1, 0},
				"legs": []map[string]any{
					{
						"distance": map[string]any{"value": 4000},
						"duration": map[string]any{"value": 480},
					},
					{
						"distance": map[string]any{"value": 2000},
						"duration": map[string]any{"value": 240},
					},
				},
			}},
		})
	})

	p := NewProvider(Options{External: g, AvgSpeedKmh: 30, PrefilterKm: 10})

	stops := []domain.Coordinate{
		{Lon: 120.91, Lat: 14.45},
		{Lon: 120.92, Lat: 14.46},
		{Lon: 120.93, Lat: 14.47},
	}
	route, err := p.OptimizeStops(context.Background(), supplier, stops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSeq := []int{1, 0, 2}
	if len(route.Sequence) != len(wantSeq) {
		t.Fatalf("sequence = %v, want %v", route.Sequence, wantSeq)
	}
	for i, v := range wantSeq {
		if route.Sequence[i] != v {
			t.Fatalf("sequence = %v, want %v", route.Sequence, wantSeq)
		}
	}
	if route.DistanceMeters != 6000 || route.DurationSeconds != 720 {
		t.Fatalf("totals = %d m / %d s, want 6000/720", route.DistanceMeters, route.DurationSeconds)
	}
}

func TestEstimatorMath(t *testing.T) {
	e := NewEstimator(30)

	res := e.FromStraightLine(10)
	if res.DistanceMeters != 13000 {
		t.Fatalf("meters = %d, want 13000", res.DistanceMeters)
	}
	// 13 km at 30 km/h is 26 minutes.
	if res.DurationSeconds != 1560 {
		t.Fatalf("seconds = %d, want 1560", res.DurationSeconds)
	}
}
