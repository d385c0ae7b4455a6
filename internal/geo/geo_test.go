package geo

import (
	"math"
	"testing"

	"delivery-dispatch-service/internal/domain"
)

var (
	kawit  = domain.Coordinate{Lon: 120.9025, Lat: 14.4444}
	manila = domain.Coordinate{Lon: 120.9842, Lat: 14.5995}
	cavite = domain.Coordinate{Lon: 120.8970, Lat: 14.4791}
)

func TestHaversineIdentity(t *testing.T) {
	if d := Haversine(kawit, kawit); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	ab := Haversine(kawit, manila)
	ba := Haversine(manila, kawit)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Fatalf("distance between distinct points must be positive, got %v", ab)
	}
}

func TestHaversineTriangleInequality(t *testing.T) {
	ab := Haversine(kawit, manila)
	ac := Haversine(kawit, cavite)
	cb := Haversine(cavite, manila)
	if ab > ac+cb+1e-9 {
		t.Fatalf("triangle inequality violated: %v > %v + %v", ab, ac, cb)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Kawit to central Manila is roughly 19 km great-circle.
	d := Haversine(kawit, manila)
	if d < 18 || d > 21 {
		t.Fatalf("Kawit-Manila distance = %v km, expected ~19 km", d)
	}
}

func TestDeliveryFeeBoundaries(t *testing.T) {
	cases := []struct {
		km   float64
		want int
	}{
		{0, 50},
		{2.99, 50},
		{3.00, 75},
		{4.99, 75},
		{5.00, 100},
		{9.99, 100},
		{10.00, 150},
		{12.10, 182},
	}
	for _, tc := range cases {
		if got := DeliveryFee(tc.km); got != tc.want {
			t.Errorf("DeliveryFee(%v) = %d, want %d", tc.km, got, tc.want)
		}
	}
}

func TestDeliveryFeeMonotonic(t *testing.T) {
	prev := DeliveryFee(0)
	for km := 0.0; km <= 30; km += 0.25 {
		fee := DeliveryFee(km)
		if fee < prev {
			t.Fatalf("fee decreased at %v km: %d < %d", km, fee, prev)
		}
		prev = fee
	}
}

func TestCoveringCellsContainNearbyPoints(t *testing.T) {
	cells := CoveringCells(kawit, 3)

	// A point ~1.5 km away must fall inside the covering cells.
	near := domain.Coordinate{Lon: kawit.Lon + 0.012, Lat: kawit.Lat + 0.005}
	if Haversine(kawit, near) > 3 {
		t.Fatal("test point drifted outside the radius")
	}
	if !InCells(near, cells) {
		t.Fatal("point within radius not covered by geohash cells")
	}
}

func TestCellPrecisionForRadius(t *testing.T) {
	cases := []struct {
		radiusKm float64
		lat      float64
		want     uint
	}{
		{3, 14.44, 5},
		{0.5, 0, 6},
		{20, 14.44, 3},
		// Longitude cells at 59.33N are barely 2.5 km wide at precision 5,
		// so a 3 km radius needs the next coarser cell.
		{3, 59.33, 4},
		{3, -59.33, 4},
	}
	for _, tc := range cases {
		if got := CellPrecisionForRadius(tc.radiusKm, tc.lat); got != tc.want {
			t.Errorf("CellPrecisionForRadius(%v, %v) = %d, want %d", tc.radiusKm, tc.lat, got, tc.want)
		}
	}
}

func TestCoveringCellsHighLatitude(t *testing.T) {
	// Center sits a few meters from the east edge of its precision-5 cell,
	// where narrowed longitude cells used to push a point well inside the
	// radius past the neighbor ring.
	center := domain.Coordinate{Lon: 18.0154, Lat: 59.33}
	east := domain.Coordinate{Lon: 18.0665, Lat: 59.33}
	if d := Haversine(center, east); d > 3 {
		t.Fatalf("test point drifted outside the radius: %v km", d)
	}

	if !InCells(east, CoveringCells(center, 3)) {
		t.Fatal("point within radius not covered by geohash cells")
	}
}
