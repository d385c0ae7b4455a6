// Package geo holds the pure geospatial helpers used across the dispatch
// core: great-circle distances, delivery fee steps, and geohash cell helpers
// for coarse proximity prefiltering.
package geo

import (
	"math"

	"delivery-dispatch-service/internal/domain"

	"github.com/mmcloughlin/geohash"
)

// Earth radius in kilometers.
const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates in
// kilometers. Symmetric, and zero iff both points are equal.
func Haversine(a, b domain.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DeliveryFee converts a delivery distance to a fee using the platform's
// step function. Monotonic non-decreasing in distance.
func DeliveryFee(distanceKm float64) int {
	switch {
	case distanceKm < 3:
		return 50
	case distanceKm < 5:
		return 75
	case distanceKm < 10:
		return 100
	default:
		return int(math.Ceil(distanceKm * 15))
	}
}

// Cell returns the geohash cell of a coordinate at the given precision.
func Cell(c domain.Coordinate, precision uint) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, precision)
}

// cellSizeKm returns the width and height of a geohash cell at the given
// precision and latitude. A cell at precision p spans 360/2^ceil(5p/2)
// degrees of longitude and 180/2^floor(5p/2) degrees of latitude; a degree
// of longitude shrinks by cos(latitude).
func cellSizeKm(precision uint, lat float64) (width, height float64) {
	bits := 5 * precision
	lonDeg := 360 / math.Exp2(float64((bits+1)/2))
	latDeg := 180 / math.Exp2(float64(bits/2))
	kmPerDeg := earthRadiusKm * math.Pi / 180
	return lonDeg * kmPerDeg * math.Cos(lat*math.Pi/180), latDeg * kmPerDeg
}

// CellPrecisionForRadius picks the finest geohash precision whose cell still
// spans the given radius at the given latitude, so a cell plus its eight
// neighbors is a guaranteed superset of the radius around any point inside.
// Longitude cells narrow toward the poles, so the same radius can demand a
// coarser precision at high latitude than at the equator.
func CellPrecisionForRadius(radiusKm, lat float64) uint {
	for precision := uint(8); precision > 1; precision-- {
		w, h := cellSizeKm(precision, lat)
		if radiusKm <= w && radiusKm <= h {
			return precision
		}
	}
	return 1
}

// CoveringCells returns the geohash cells that together cover the circle of
// the given radius around center: the center cell and its neighbors.
func CoveringCells(center domain.Coordinate, radiusKm float64) map[string]struct{} {
	precision := CellPrecisionForRadius(radiusKm, center.Lat)
	cell := Cell(center, precision)

	cells := make(map[string]struct{}, 9)
	cells[cell] = struct{}{}
	for _, n := range geohash.Neighbors(cell) {
		cells[n] = struct{}{}
	}
	return cells
}

// InCells reports whether the coordinate falls in one of the given cells.
// The precision is inferred from the first cell's length.
func InCells(c domain.Coordinate, cells map[string]struct{}) bool {
	for cell := range cells {
		if Cell(c, uint(len(cell))) == cell {
			return true
		}
	}
	return false
}
