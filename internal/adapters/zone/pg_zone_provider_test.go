package zone

import (
	"testing"

	"delivery-dispatch-service/internal/domain"
)

// Rough square around the Cavite service area.
var square = []domain.Coordinate{
	{Lon: 120.85, Lat: 14.40},
	{Lon: 120.95, Lat: 14.40},
	{Lon: 120.95, Lat: 14.50},
	{Lon: 120.85, Lat: 14.50},
}

func TestPointInPolygon(t *testing.T) {
	cases := []struct {
		name  string
		point domain.Coordinate
		want  bool
	}{
		{"center", domain.Coordinate{Lon: 120.90, Lat: 14.45}, true},
		{"near edge inside", domain.Coordinate{Lon: 120.8501, Lat: 14.45}, true},
		{"west of zone", domain.Coordinate{Lon: 120.80, Lat: 14.45}, false},
		{"north of zone", domain.Coordinate{Lon: 120.90, Lat: 14.55}, false},
		{"far away", domain.Coordinate{Lon: 121.50, Lat: 15.00}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PointInPolygon(tc.point, square); got != tc.want {
				t.Fatalf("PointInPolygon(%+v) = %v, want %v", tc.point, got, tc.want)
			}
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// An L-shaped ring: the notch at the top right is outside.
	ring := []domain.Coordinate{
		{Lon: 0, Lat: 0},
		{Lon: 4, Lat: 0},
		{Lon: 4, Lat: 2},
		{Lon: 2, Lat: 2},
		{Lon: 2, Lat: 4},
		{Lon: 0, Lat: 4},
	}

	if !PointInPolygon(domain.Coordinate{Lon: 1, Lat: 3}, ring) {
		t.Fatal("(1,3) is inside the vertical arm")
	}
	if PointInPolygon(domain.Coordinate{Lon: 3, Lat: 3}, ring) {
		t.Fatal("(3,3) is inside the notch, outside the ring")
	}
}

func TestPointInPolygonDegenerateRing(t *testing.T) {
	ring := []domain.Coordinate{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}
	if PointInPolygon(domain.Coordinate{Lon: 0.5, Lat: 0.5}, ring) {
		t.Fatal("a two-vertex ring cannot contain anything")
	}
}
