package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"testing"
)

const epsilon = 1e-6

func almostEqual(a, b Coordinate) bool {
	return math.Abs(a.Lon-b.Lon) < epsilon && math.Abs(a.Lat-b.Lat) < epsilon
}

// encodeEWKB builds the hex string PostGIS emits for a 4326 point.
func encodeEWKB(lon, lat float64) string {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(lon))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(lat))
	return ewkbPointHeader + hex.EncodeToString(buf)
}

func TestParseCoordinateRoundTrips(t *testing.T) {
	want := Coordinate{Lon: 120.9025, Lat: 14.4444}

	cases := []struct {
		name string
		raw  any
	}{
		{"geojson map", map[string]any{"type": "Point", "coordinates": []any{120.9025, 14.4444}}},
		{"geojson bytes", []byte(`{"type":"Point","coordinates":[120.9025,14.4444]}`)},
		{"wkt", "POINT(120.9025 14.4444)"},
		{"ewkb hex", encodeEWKB(120.9025, 14.4444)},
		{"pair array", [2]float64{120.9025, 14.4444}},
		{"pair slice", []float64{120.9025, 14.4444}},
		{"pair json", "[120.9025, 14.4444]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCoordinate(tc.raw)
			if !ok {
				t.Fatalf("ParseCoordinate(%v) not ok", tc.raw)
			}
			if !almostEqual(got, want) {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseCoordinateNegativePair(t *testing.T) {
	got, ok := ParseCoordinate("POINT(-122.4194 37.7749)")
	if !ok {
		t.Fatal("expected ok")
	}
	if !almostEqual(got, Coordinate{Lon: -122.4194, Lat: 37.7749}) {
		t.Fatalf("got %+v", got)
	}
}

func TestParseCoordinateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"garbage", "not a point"},
		{"wkt missing coord", "POINT(12.5)"},
		{"wkt not numeric", "POINT(a b)"},
		{"short ewkb", ewkbPointHeader + "00FF"},
		{"ewkb bad hex", ewkbPointHeader + "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"lon out of range", [2]float64{181, 10}},
		{"lat out of range", [2]float64{10, 91}},
		{"triple", []float64{1, 2, 3}},
		{"geojson wrong type", map[string]any{"type": "Polygon", "coordinates": []any{1.0, 2.0}}},
		{"geojson no coords", map[string]any{"type": "Point"}},
		{"unsupported type", 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParseCoordinate(tc.raw); ok {
				t.Fatalf("ParseCoordinate(%v) unexpectedly ok", tc.raw)
			}
		})
	}
}

func TestParseCoordinateRejectsOutOfRangeEWKB(t *testing.T) {
	raw := encodeEWKB(400, 95)
	if _, ok := ParseCoordinate(raw); ok {
		t.Fatal("out-of-range EWKB point should be rejected")
	}
}

func TestParseCoordinateEWKBCaseInsensitiveHeader(t *testing.T) {
	raw := encodeEWKB(10, 20)
	lower := fmt.Sprintf("%s%s", "0101000020e6100000", raw[len(ewkbPointHeader):])
	got, ok := ParseCoordinate(lower)
	if !ok {
		t.Fatal("lowercase header should parse")
	}
	if !almostEqual(got, Coordinate{Lon: 10, Lat: 20}) {
		t.Fatalf("got %+v", got)
	}
}
