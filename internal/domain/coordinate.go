package domain

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Immutable geographic coordinate (longitude, latitude), stored
// longitude-first to match the GeoJSON convention.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Return the coordinate as [lon, lat] for external API compatibility.
func (c Coordinate) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid reports whether the coordinate lies within [-180,180]x[-90,90].
func (c Coordinate) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// EWKB point values start with a fixed type header: little-endian byte
// order, point type, and the SRID 4326 flag. Two packed little-endian
// float64 values follow.
const ewkbPointHeader = "0101000020E6100000"

// ParseCoordinate normalizes the serialized coordinate forms accepted by the
// system into a canonical Coordinate:
//
//   - GeoJSON Point objects (decoded maps or raw JSON)
//   - "POINT(lon lat)" well-known text
//   - hex-encoded EWKB point strings
//   - plain [lon, lat] pairs
//
// It never panics: any malformed or out-of-range input yields ok=false.
func ParseCoordinate(raw any) (Coordinate, bool) {
	switch v := raw.(type) {
	case nil:
		return Coordinate{}, false
	case Coordinate:
		return v, v.Valid()
	case *Coordinate:
		if v == nil {
			return Coordinate{}, false
		}
		return *v, v.Valid()
	case string:
		return parseCoordinateString(v)
	case []byte:
		return parseCoordinateJSON(v)
	case json.RawMessage:
		return parseCoordinateJSON(v)
	case [2]float64:
		return checkPair(v[0], v[1])
	case []float64:
		if len(v) != 2 {
			return Coordinate{}, false
		}
		return checkPair(v[0], v[1])
	case []any:
		return parsePairAny(v)
	case map[string]any:
		return parseGeoJSONMap(v)
	default:
		return Coordinate{}, false
	}
}

func parseCoordinateString(s string) (Coordinate, bool) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Coordinate{}, false
	case strings.HasPrefix(s, "POINT("):
		return parseWKT(s)
	case strings.HasPrefix(strings.ToUpper(s), ewkbPointHeader):
		return parseEWKB(s)
	case strings.HasPrefix(s, "{") || strings.HasPrefix(s, "["):
		return parseCoordinateJSON([]byte(s))
	default:
		return Coordinate{}, false
	}
}

func parseCoordinateJSON(b []byte) (Coordinate, bool) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return Coordinate{}, false
	}
	switch t := v.(type) {
	case map[string]any:
		return parseGeoJSONMap(t)
	case []any:
		return parsePairAny(t)
	case string:
		return parseCoordinateString(t)
	default:
		return Coordinate{}, false
	}
}

func parseGeoJSONMap(m map[string]any) (Coordinate, bool) {
	if t, ok := m["type"].(string); ok && !strings.EqualFold(t, "Point") {
		return Coordinate{}, false
	}
	coords, ok := m["coordinates"].([]any)
	if !ok {
		return Coordinate{}, false
	}
	return parsePairAny(coords)
}

func parsePairAny(pair []any) (Coordinate, bool) {
	if len(pair) != 2 {
		return Coordinate{}, false
	}
	lon, okLon := toFloat(pair[0])
	lat, okLat := toFloat(pair[1])
	if !okLon || !okLat {
		return Coordinate{}, false
	}
	return checkPair(lon, lat)
}

func parseWKT(s string) (Coordinate, bool) {
	open := strings.Index(s, "(")
	close := strings.Index(s, ")")
	if open < 0 || close < open {
		return Coordinate{}, false
	}
	fields := strings.Fields(s[open+1 : close])
	if len(fields) != 2 {
		return Coordinate{}, false
	}
	lon, errLon := strconv.ParseFloat(fields[0], 64)
	lat, errLat := strconv.ParseFloat(fields[1], 64)
	if errLon != nil || errLat != nil {
		return Coordinate{}, false
	}
	return checkPair(lon, lat)
}

// parseEWKB decodes a hex-encoded PostGIS point: two little-endian IEEE-754
// doubles at fixed offsets after the 18-character type header.
func parseEWKB(s string) (Coordinate, bool) {
	payload := s[len(ewkbPointHeader):]
	if len(payload) < 32 {
		return Coordinate{}, false
	}
	raw, err := hex.DecodeString(payload[:32])
	if err != nil {
		return Coordinate{}, false
	}
	lon := math.Float64frombits(binary.LittleEndian.Uint64(raw[0:8]))
	lat := math.Float64frombits(binary.LittleEndian.Uint64(raw[8:16]))
	return checkPair(lon, lat)
}

func checkPair(lon, lat float64) (Coordinate, bool) {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return Coordinate{}, false
	}
	c := Coordinate{Lon: lon, Lat: lat}
	return c, c.Valid()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
