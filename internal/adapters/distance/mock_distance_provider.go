package distance

import (
	"context"
	"fmt"
	"sync/atomic"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
)

type MockPair struct {
	From, To domain.Coordinate
	Meters   int
	Seconds  int
}

// MockDistanceProvider answers from a fixed pair table; test use.
type MockDistanceProvider struct {
	m     map[string]ports.DistanceResult
	calls atomic.Int64
}

func pairKey(a, b domain.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f|%.4f,%.4f", a.Lon, a.Lat, b.Lon, b.Lat)
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[pairKey(p.From, p.To)] = ports.DistanceResult{
			DistanceMeters:  p.Meters,
			DurationSeconds: p.Seconds,
		}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) DrivingDistance(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (ports.DistanceResult, error) {
	p.calls.Add(1)
	r, ok := p.m[pairKey(origin, destination)]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %v -> %v", origin, destination)
	}
	return r, nil
}

func (p *MockDistanceProvider) BatchDistances(
	ctx context.Context,
	origins, destinations []domain.Coordinate,
) ([][]ports.DistanceResult, error) {
	out := make([][]ports.DistanceResult, 0, len(origins))
	for _, o := range origins {
		row := make([]ports.DistanceResult, 0, len(destinations))
		for _, d := range destinations {
			r, err := p.DrivingDistance(ctx, o, d)
			if err != nil {
				return nil, err
			}
			row = append(row, r)
		}
		out = append(out, row)
	}
	return out, nil
}

// Calls reports how many pair lookups were made.
func (p *MockDistanceProvider) Calls() int64 { return p.calls.Load() }
