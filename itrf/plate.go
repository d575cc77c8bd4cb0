package itrf

import "fmt"

// Plate names a tectonic plate of the ITRF2014 plate motion model.
type Plate string

const (
	PlateAntarctica   Plate = "ANTA"
	PlateAustralia    Plate = "AUST"
	PlateEurasia      Plate = "EURA"
	PlateNorthAmerica Plate = "NOAM"
	PlatePacific      Plate = "PCFC"
	PlateSouthAmerica Plate = "SOAM"
)

// plateRates holds ITRF2014 plate-motion-model angular velocities in mas/yr
// (Altamimi et al. 2017, table 1).
var plateRates = map[Plate]struct{ wx, wy, wz float64 }{
	PlateAntarctica:   {-0.248, -0.324, 0.675},
	PlateAustralia:    {1.510, 1.182, 1.215},
	PlateEurasia:      {-0.085, -0.531, 0.770},
	PlateNorthAmerica: {0.024, -0.694, -0.063},
	PlatePacific:      {-0.409, 1.047, -2.169},
	PlateSouthAmerica: {-0.270, -0.301, -0.140},
}

// propagate moves a cartesian position from observation epoch t to target
// epoch te along the rigid rotation of the given plate.
func propagate(v Vec3, plate Plate, t, te float64) (Vec3, error) {
	rates, ok := plateRates[plate]
	if !ok {
		return Vec3{}, fmt.Errorf("unknown plate %q in plate motion model", plate)
	}
	omega := Vec3{
		X: rates.wx * masToRad,
		Y: rates.wy * masToRad,
		Z: rates.wz * masToRad,
	}
	return v.Add(omega.Cross(v).Scale(te - t)), nil
}

// InferPlate picks a plate for a point cloud from its mean position. The
// heuristic covers the polar regions the supported datasets observe:
// everything south of 60S is Antarctica, the Greenland/Arctic-Canada sector
// is North America, northern Eurasia is Eurasia. Mid-latitude data should
// pass an explicit plate instead.
func InferPlate(meanLat, meanLon float64) Plate {
	switch {
	case meanLat < -60:
		return PlateAntarctica
	case meanLat > 55 && meanLon >= -170 && meanLon < -10:
		return PlateNorthAmerica
	case meanLat > 55:
		return PlateEurasia
	case meanLon >= -170 && meanLon < -30:
		return PlateNorthAmerica
	default:
		return PlateEurasia
	}
}
