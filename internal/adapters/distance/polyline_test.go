package distance

import (
	"math"
	"testing"
)

func TestDecodePolyline(t *testing.T) {
	// Worked example from the Google encoded polyline format docs.
	pts := decodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	if len(pts) != 3 {
		t.Fatalf("decoded %d points, want 3", len(pts))
	}

	want := [][2]float64{
		{-120.2, 38.5},
		{-120.95, 40.7},
		{-126.453, 43.252},
	}
	for i, w := range want {
		if math.Abs(pts[i].Lon-w[0]) > 1e-5 || math.Abs(pts[i].Lat-w[1]) > 1e-5 {
			t.Fatalf("point %d = (%f, %f), want (%f, %f)", i, pts[i].Lon, pts[i].Lat, w[0], w[1])
		}
	}
}

func TestDecodePolylineEmpty(t *testing.T) {
	if pts := decodePolyline(""); len(pts) != 0 {
		t.Fatalf("decoded %d points from empty input", len(pts))
	}
}

func TestDecodePolylineTruncated(t *testing.T) {
	// A chunk with the continuation bit set but no following byte must
	// not panic or loop.
	pts := decodePolyline("_p~iF~ps|U_")
	if len(pts) > 1 {
		t.Fatalf("decoded %d points from truncated input, want at most 1", len(pts))
	}
}
