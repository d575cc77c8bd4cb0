package itrf

import (
	"math"
	"testing"
)

func TestGeodeticCartesianRoundTrip(t *testing.T) {
	cases := []struct {
		name           string
		lat, lon, elev float64
	}{
		{"pine island glacier", -75.1, -100.9, 312.5},
		{"greenland summit", 72.58, -38.45, 3216.0},
		{"equator", 0.0, 0.0, 0.0},
		{"antimeridian", -70.0, 179.999, 55.2},
		{"below ellipsoid", -77.5, 166.0, -30.0},
	}

	for _, tc := range cases {
		v := GeodeticToCartesian(tc.lat, tc.lon, tc.elev)
		lat, lon, elev := CartesianToGeodetic(v)

		if math.Abs(lat-tc.lat) > 1e-11 {
			t.Errorf("%s: latitude round trip %v -> %v", tc.name, tc.lat, lat)
		}
		if math.Abs(lon-tc.lon) > 1e-11 {
			t.Errorf("%s: longitude round trip %v -> %v", tc.name, tc.lon, lon)
		}
		if math.Abs(elev-tc.elev) > 1e-6 {
			t.Errorf("%s: elevation round trip %v -> %v", tc.name, tc.elev, elev)
		}
	}
}

func TestGeodeticToCartesianKnownPoint(t *testing.T) {
	// At lat=0, lon=0, h=0 the cartesian position is (a, 0, 0).
	v := GeodeticToCartesian(0, 0, 0)
	if math.Abs(v.X-wgs84A) > 1e-6 || math.Abs(v.Y) > 1e-6 || math.Abs(v.Z) > 1e-6 {
		t.Errorf("equator/prime meridian point = %+v, want (%v, 0, 0)", v, wgs84A)
	}

	// At the north pole the distance from the axis is zero and Z is the
	// polar radius.
	b := wgs84A * (1 - wgs84F)
	v = GeodeticToCartesian(90, 0, 0)
	if math.Hypot(v.X, v.Y) > 1e-6 || math.Abs(v.Z-b) > 1e-6 {
		t.Errorf("north pole point = %+v, want (0, 0, %v)", v, b)
	}
}

func TestCartesianToGeodeticPolarAxis(t *testing.T) {
	b := wgs84A * (1 - wgs84F)
	lat, _, h := CartesianToGeodetic(Vec3{Z: b + 100})
	if math.Abs(lat-90) > 1e-9 {
		t.Errorf("polar axis latitude = %v, want 90", lat)
	}
	if math.Abs(h-100) > 1e-6 {
		t.Errorf("polar axis height = %v, want 100", h)
	}
}
