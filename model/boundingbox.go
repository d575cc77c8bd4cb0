package model

import "fmt"

// BoundingBox is a geographic search extent in decimal degrees.
type BoundingBox struct {
	LowerLeftLon  float64
	LowerLeftLat  float64
	UpperRightLon float64
	UpperRightLat float64
}

// NewBoundingBox builds a bounding box from the four corner values in
// (lower-left lon, lower-left lat, upper-right lon, upper-right lat) order,
// matching the ordering used by the CMR search API.
func NewBoundingBox(llLon, llLat, urLon, urLat float64) BoundingBox {
	return BoundingBox{
		LowerLeftLon:  llLon,
		LowerLeftLat:  llLat,
		UpperRightLon: urLon,
		UpperRightLat: urLat,
	}
}

// Slice returns the corner values in CMR ordering.
func (b BoundingBox) Slice() [4]float64 {
	return [4]float64{b.LowerLeftLon, b.LowerLeftLat, b.UpperRightLon, b.UpperRightLat}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.LowerLeftLon, b.LowerLeftLat, b.UpperRightLon, b.UpperRightLat)
}

// Validate checks corner ordering and coordinate ranges.
func (b BoundingBox) Validate() error {
	if b.LowerLeftLon < -180 || b.LowerLeftLon > 180 ||
		b.UpperRightLon < -180 || b.UpperRightLon > 180 {
		return fmt.Errorf("bounding box longitude out of range [-180,180]: %s", b)
	}
	if b.LowerLeftLat < -90 || b.LowerLeftLat > 90 ||
		b.UpperRightLat < -90 || b.UpperRightLat > 90 {
		return fmt.Errorf("bounding box latitude out of range [-90,90]: %s", b)
	}
	if b.LowerLeftLon >= b.UpperRightLon {
		return fmt.Errorf("bounding box lower-left lon must be west of upper-right lon: %s", b)
	}
	if b.LowerLeftLat >= b.UpperRightLat {
		return fmt.Errorf("bounding box lower-left lat must be south of upper-right lat: %s", b)
	}
	return nil
}
