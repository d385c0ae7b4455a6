package distance

import "delivery-dispatch-service/internal/domain"

// decodePolyline expands a Google encoded polyline into coordinates for map
// display. Malformed trailing bytes terminate the decode rather than panic.
func decodePolyline(encoded string) []domain.Coordinate {
	coords := make([]domain.Coordinate, 0, len(encoded)/4)

	var lat, lng int
	index := 0

	readDelta := func() (int, bool) {
		shift, result := 0, 0
		for {
			if index >= len(encoded) {
				return 0, false
			}
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		if result&1 != 0 {
			return ^(result >> 1), true
		}
		return result >> 1, true
	}

	for index < len(encoded) {
		dLat, ok := readDelta()
		if !ok {
			break
		}
		dLng, ok := readDelta()
		if !ok {
			break
		}

		lat += dLat
		lng += dLng

		coords = append(coords, domain.Coordinate{
			Lon: float64(lng) / 1e5,
			Lat: float64(lat) / 1e5,
		})
	}

	return coords
}
