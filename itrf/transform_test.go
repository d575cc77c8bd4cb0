package itrf

import (
	"math"
	"testing"
	"time"

	"github.com/cryodata/iceflow/model"
)

func testBatch(frame string, n int) *model.PointBatch {
	b := model.NewPointBatch("ILATM1Bv1", n)
	base := time.Date(2010, time.October, 26, 15, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		b.UTCDateTime = append(b.UTCDateTime, base.Add(time.Duration(i)*time.Second))
		b.ITRF = append(b.ITRF, frame)
		b.Latitude = append(b.Latitude, -75.1+0.001*float64(i))
		b.Longitude = append(b.Longitude, -100.9+0.001*float64(i))
		b.Elevation = append(b.Elevation, 310.0+0.5*float64(i))
	}
	return b
}

func TestTransformIdentityIsNoOp(t *testing.T) {
	in := testBatch("ITRF2008", 5)
	out, err := Transform(in, ITRF2008, Options{})
	if err != nil {
		t.Fatalf("identity transform failed: %v", err)
	}
	for i := range in.Latitude {
		if out.Latitude[i] != in.Latitude[i] ||
			out.Longitude[i] != in.Longitude[i] ||
			out.Elevation[i] != in.Elevation[i] {
			t.Fatalf("record %d changed under identity transform", i)
		}
		if out.ITRF[i] != "ITRF2008" {
			t.Fatalf("record %d lost frame tag: %q", i, out.ITRF[i])
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	pairs := []struct{ a, b Frame }{
		{ITRF2005, ITRF2008},
		{ITRF93, ITRF2014},
		{ITRF2000, ITRF2020},
		{ITRF97, ITRF2008},
	}

	for _, pair := range pairs {
		in := testBatch(string(pair.a), 4)
		fwd, err := Transform(in, pair.b, Options{})
		if err != nil {
			t.Fatalf("%s -> %s: %v", pair.a, pair.b, err)
		}
		back, err := Transform(fwd, pair.a, Options{})
		if err != nil {
			t.Fatalf("%s -> %s: %v", pair.b, pair.a, err)
		}

		for i := range in.Latitude {
			// 1e-9 degrees is ~0.1 mm on the ground.
			if d := math.Abs(back.Latitude[i] - in.Latitude[i]); d > 1e-9 {
				t.Errorf("%s<->%s record %d latitude drifted by %g deg", pair.a, pair.b, i, d)
			}
			if d := math.Abs(back.Longitude[i] - in.Longitude[i]); d > 1e-9 {
				t.Errorf("%s<->%s record %d longitude drifted by %g deg", pair.a, pair.b, i, d)
			}
			if d := math.Abs(back.Elevation[i] - in.Elevation[i]); d > 1e-4 {
				t.Errorf("%s<->%s record %d elevation drifted by %g m", pair.a, pair.b, i, d)
			}
		}
	}
}

func TestTransformLowercaseTarget(t *testing.T) {
	in := testBatch("ITRF2008", 2)
	out, err := Transform(in, Frame("itrf2014"), Options{})
	if err != nil {
		t.Fatalf("lowercase target rejected: %v", err)
	}
	for i, frame := range out.ITRF {
		if frame != "ITRF2014" {
			t.Errorf("record %d frame = %q, want canonical ITRF2014", i, frame)
		}
	}
}

func TestTransformMovesCoordinates(t *testing.T) {
	// ITRF93 -> ITRF2014 includes cm-level rotations; the transform must not
	// silently pass coordinates through.
	in := testBatch("ITRF93", 1)
	out, err := Transform(in, ITRF2014, Options{})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if out.Latitude[0] == in.Latitude[0] && out.Longitude[0] == in.Longitude[0] {
		t.Errorf("ITRF93 -> ITRF2014 left coordinates unchanged")
	}
	if out.ITRF[0] != "ITRF2014" {
		t.Errorf("output frame tag = %q, want ITRF2014", out.ITRF[0])
	}
}

func TestTransformMixedFramesPreservesOrder(t *testing.T) {
	a := testBatch("ITRF2005", 3)
	b := testBatch("ITRF2008", 3)
	merged := model.Concat(a, b)

	out, err := Transform(merged, ITRF2008, Options{})
	if err != nil {
		t.Fatalf("mixed-frame transform failed: %v", err)
	}
	if out.Len() != 6 {
		t.Fatalf("expected 6 records, got %d", out.Len())
	}
	for i := range out.ITRF {
		if out.ITRF[i] != "ITRF2008" {
			t.Errorf("record %d frame = %q, want ITRF2008", i, out.ITRF[i])
		}
	}
	// The ITRF2008 half was a passthrough chunk and must be bit-identical.
	for i := 3; i < 6; i++ {
		if out.Latitude[i] != merged.Latitude[i] {
			t.Errorf("passthrough record %d latitude changed", i)
		}
	}
	// The ITRF2005 half must have moved (mm-level translation exists).
	if out.Elevation[0] == merged.Elevation[0] && out.Latitude[0] == merged.Latitude[0] {
		t.Errorf("ITRF2005 chunk was not transformed")
	}
}

func TestTransformEpochPropagationMonotonic(t *testing.T) {
	in := testBatch("ITRF2008", 1)
	obs := DecimalYear(in.UTCDateTime[0])

	base, err := Transform(in, ITRF2008, Options{})
	if err != nil {
		t.Fatalf("baseline transform failed: %v", err)
	}

	var prev float64
	for i, epoch := range []float64{obs + 1, obs + 5, obs + 10} {
		out, err := Transform(in, ITRF2008, Options{TargetEpoch: epoch, Plate: PlateAntarctica})
		if err != nil {
			t.Fatalf("epoch %v transform failed: %v", epoch, err)
		}
		a := GeodeticToCartesian(base.Latitude[0], base.Longitude[0], base.Elevation[0])
		b := GeodeticToCartesian(out.Latitude[0], out.Longitude[0], out.Elevation[0])
		displacement := a.Sub(b).Norm()

		if displacement <= prev {
			t.Errorf("epoch +%dy displacement %g m not greater than previous %g m",
				i+1, displacement, prev)
		}
		prev = displacement
	}

	// Antarctic plate motion is roughly a centimetre per year.
	if prev < 0.01 || prev > 1.0 {
		t.Errorf("10-year propagation moved the point %g m; expected cm/yr scale", prev)
	}
}

func TestTransformInferredPlateMatchesExplicit(t *testing.T) {
	in := testBatch("ITRF2008", 2)
	epoch := 2020.0

	inferred, err := Transform(in, ITRF2008, Options{TargetEpoch: epoch})
	if err != nil {
		t.Fatalf("inferred-plate transform failed: %v", err)
	}
	explicit, err := Transform(in, ITRF2008, Options{TargetEpoch: epoch, Plate: PlateAntarctica})
	if err != nil {
		t.Fatalf("explicit-plate transform failed: %v", err)
	}
	for i := range inferred.Latitude {
		if inferred.Latitude[i] != explicit.Latitude[i] {
			t.Errorf("record %d: inferred plate result differs from explicit ANTA", i)
		}
	}
}

func TestTransformRejectsBadFrames(t *testing.T) {
	in := testBatch("ITRF2008", 1)

	if _, err := Transform(in, Frame("WGS84"), Options{}); err == nil {
		t.Errorf("expected error for malformed target frame")
	}
	if _, err := Transform(in, Frame("ITRF88"), Options{}); err == nil {
		t.Errorf("expected error for target frame outside the transform tables")
	}

	in.ITRF[0] = "ITRF88"
	if _, err := Transform(in, ITRF2008, Options{}); err == nil {
		t.Errorf("expected error for source frame outside the transform tables")
	}
}

func TestDecimalYear(t *testing.T) {
	cases := []struct {
		in   time.Time
		want float64
	}{
		{time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC), 2010.0},
		{time.Date(2010, time.July, 2, 12, 0, 0, 0, time.UTC), 2010.5},  // non-leap midpoint
		{time.Date(2012, time.July, 2, 0, 0, 0, 0, time.UTC), 2012.5},   // leap midpoint
		{time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC), 1999.99999997},
	}
	for _, tc := range cases {
		got := DecimalYear(tc.in)
		if math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("DecimalYear(%s) = %.8f, want %.8f", tc.in, got, tc.want)
		}
	}
}

func TestInferPlate(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     Plate
	}{
		{-75.1, -100.9, PlateAntarctica},
		{72.6, -38.5, PlateNorthAmerica}, // Greenland
		{78.2, 15.6, PlateEurasia},       // Svalbard
		{61.0, -149.9, PlateNorthAmerica},
	}
	for _, tc := range cases {
		if got := InferPlate(tc.lat, tc.lon); got != tc.want {
			t.Errorf("InferPlate(%v, %v) = %q, want %q", tc.lat, tc.lon, got, tc.want)
		}
	}
}
