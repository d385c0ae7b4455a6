package services

import (
	"context"
	"testing"

	"delivery-dispatch-service/internal/adapters/distance"
	"delivery-dispatch-service/internal/domain"
)

func TestOptimizeStopsEmpty(t *testing.T) {
	o := NewOptimizer(distance.NewMockDistanceProvider(nil))

	plan, err := o.OptimizeStops(context.Background(), testSupplier, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Sequence) != 0 || plan.TotalDistanceMeters != 0 || plan.TotalDurationSeconds != 0 {
		t.Fatalf("empty stop set must produce an empty plan, got %+v", plan)
	}
}

func TestOptimizeStopsSingle(t *testing.T) {
	stop := domain.Coordinate{Lon: 120.9100, Lat: 14.4500}
	p := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: testSupplier, To: stop, Meters: 2500, Seconds: 300},
	})

	plan, err := NewOptimizer(p).OptimizeStops(context.Background(), testSupplier, []domain.Coordinate{stop})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Sequence) != 1 || plan.Sequence[0] != 0 {
		t.Fatalf("sequence = %v, want [0]", plan.Sequence)
	}
	if plan.TotalDistanceMeters != 2500 {
		t.Fatalf("distance = %d, want 2500", plan.TotalDistanceMeters)
	}
	if p.Calls() == 0 {
		t.Fatal("expected at least one distance lookup")
	}
}

func TestOptimizeStopsNearestNeighbor(t *testing.T) {
	a := domain.Coordinate{Lon: 120.9500, Lat: 14.4800}
	b := domain.Coordinate{Lon: 120.9125, Lat: 14.4444}
	p := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: testSupplier, To: a, Meters: 8000, Seconds: 960},
		{From: testSupplier, To: b, Meters: 4000, Seconds: 480},
		{From: b, To: a, Meters: 10000, Seconds: 1200},
		{From: a, To: b, Meters: 10000, Seconds: 1200},
	})

	plan, err := NewOptimizer(p).OptimizeStops(context.Background(), testSupplier, []domain.Coordinate{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Greedy tour: b (4 km) before a (10 km more).
	if len(plan.Sequence) != 2 || plan.Sequence[0] != 1 || plan.Sequence[1] != 0 {
		t.Fatalf("sequence = %v, want [1 0]", plan.Sequence)
	}
	if plan.TotalDistanceMeters != 14000 {
		t.Fatalf("distance = %d, want 14000", plan.TotalDistanceMeters)
	}
	if len(plan.LegDistances) != 2 || plan.LegDistances[0] != 4000 || plan.LegDistances[1] != 10000 {
		t.Fatalf("legs = %v, want [4000 10000]", plan.LegDistances)
	}
}

func TestOptimizeStopsDeterministicOnTies(t *testing.T) {
	a := domain.Coordinate{Lon: 120.9100, Lat: 14.4500}
	b := domain.Coordinate{Lon: 120.8950, Lat: 14.4388}
	p := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: testSupplier, To: a, Meters: 5000, Seconds: 600},
		{From: testSupplier, To: b, Meters: 5000, Seconds: 600},
		{From: a, To: b, Meters: 3000, Seconds: 360},
		{From: b, To: a, Meters: 3000, Seconds: 360},
	})

	for i := 0; i < 5; i++ {
		plan, err := NewOptimizer(p).OptimizeStops(context.Background(), testSupplier, []domain.Coordinate{a, b})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.Sequence[0] != 0 || plan.Sequence[1] != 1 {
			t.Fatalf("run %d: tied stops must resolve to the lowest index, got %v", i, plan.Sequence)
		}
	}
}
