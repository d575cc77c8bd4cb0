package itrf

import "math"

// WGS84 ellipsoid constants. All cartesian coordinates in this package are
// geocentric metres on the WGS84 ellipsoid.
const (
	wgs84A  = 6378137.0           // semi-major axis (m)
	wgs84F  = 1 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Vec3 is a geocentric cartesian position in metres.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Cross returns the cross product v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// GeodeticToCartesian converts geodetic lat/lon (degrees) and ellipsoidal
// height (metres) to geocentric cartesian coordinates.
func GeodeticToCartesian(latDeg, lonDeg, heightM float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// Prime vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Vec3{
		X: (n + heightM) * cosLat * cosLon,
		Y: (n + heightM) * cosLat * sinLon,
		Z: (n*(1-wgs84E2) + heightM) * sinLat,
	}
}

// CartesianToGeodetic converts geocentric cartesian coordinates back to
// geodetic lat/lon (degrees) and ellipsoidal height (metres). The latitude
// is found by fixed-point iteration, converging well below the millimetre
// level for terrestrial points.
func CartesianToGeodetic(v Vec3) (latDeg, lonDeg, heightM float64) {
	lon := math.Atan2(v.Y, v.X)
	p := math.Hypot(v.X, v.Y)

	if p == 0 {
		// On the polar axis the longitude is arbitrary.
		lat := math.Pi / 2
		if v.Z < 0 {
			lat = -lat
		}
		b := wgs84A * (1 - wgs84F)
		return lat * 180 / math.Pi, 0, math.Abs(v.Z) - b
	}

	lat := math.Atan2(v.Z, p*(1-wgs84E2))
	var n float64
	for i := 0; i < 12; i++ {
		sinLat := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		next := math.Atan2(v.Z+wgs84E2*n*sinLat, p)
		if math.Abs(next-lat) < 1e-14 {
			lat = next
			break
		}
		lat = next
	}

	sinLat, cosLat := math.Sincos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = p/cosLat - n
	} else {
		h = v.Z/sinLat - n*(1-wgs84E2)
	}

	return lat * 180 / math.Pi, lon * 180 / math.Pi, h
}
