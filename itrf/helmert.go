package itrf

import (
	"fmt"
	"math"
)

// helmert holds one 14-parameter transformation: translations (mm), scale
// (ppb), rotations (mas), and their rates per year, all referred to epoch.
// The parameters describe the transformation FROM the pivot frame TO the
// named frame, in the IERS position-vector convention.
type helmert struct {
	tx, ty, tz    float64 // mm
	d             float64 // ppb
	rx, ry, rz    float64 // mas
	dtx, dty, dtz float64 // mm/yr
	dd            float64 // ppb/yr
	drx, dry, drz float64 // mas/yr
	epoch         float64 // decimal year
}

// toITRF2014 holds the published ITRF2014 transformation parameters
// (IGN, epoch 2010.0) from ITRF2014 to each earlier realization. The
// ITRF97, ITRF96, and ITRF94 rows share one parameter set, as published.
var toITRF2014 = map[Frame]helmert{
	ITRF2008: {
		tx: 1.6, ty: 1.9, tz: 2.4, d: -0.02,
		dtz: -0.1, dd: 0.03,
		epoch: 2010.0,
	},
	ITRF2005: {
		tx: 2.6, ty: 1.0, tz: -2.3, d: 0.92,
		dtx: 0.3, dtz: -0.1, dd: 0.03,
		epoch: 2010.0,
	},
	ITRF2000: {
		tx: 0.7, ty: 1.2, tz: -26.1, d: 2.12,
		dtx: 0.1, dty: 0.1, dtz: -1.9, dd: 0.11,
		epoch: 2010.0,
	},
	ITRF97: {
		tx: 7.4, ty: -0.5, tz: -62.8, d: 3.80, rz: 0.26,
		dtx: 0.1, dty: -0.5, dtz: -3.3, dd: 0.12, drz: 0.02,
		epoch: 2010.0,
	},
	ITRF96: {
		tx: 7.4, ty: -0.5, tz: -62.8, d: 3.80, rz: 0.26,
		dtx: 0.1, dty: -0.5, dtz: -3.3, dd: 0.12, drz: 0.02,
		epoch: 2010.0,
	},
	ITRF94: {
		tx: 7.4, ty: -0.5, tz: -62.8, d: 3.80, rz: 0.26,
		dtx: 0.1, dty: -0.5, dtz: -3.3, dd: 0.12, drz: 0.02,
		epoch: 2010.0,
	},
	ITRF93: {
		tx: -50.4, ty: 3.3, tz: -60.2, d: 4.29,
		rx: -2.81, ry: -3.38, rz: 0.40,
		dtx: -2.8, dty: -0.1, dtz: -2.5, dd: 0.12,
		drx: -0.11, dry: -0.19, drz: 0.07,
		epoch: 2010.0,
	},
}

// toITRF2020 holds the published ITRF2020 parameters (epoch 2015.0) for the
// frames that sit above ITRF2014 in the table. Only the ITRF2014 row is
// needed: older frames compose through ITRF2014.
var toITRF2020 = map[Frame]helmert{
	ITRF2014: {
		tx: -1.4, ty: -0.9, tz: 1.4, d: -0.42,
		dty: -0.1, dtz: 0.2,
		epoch: 2015.0,
	},
}

const (
	mmToM    = 1e-3
	ppbToOne = 1e-9
	masToRad = math.Pi / (180.0 * 3600.0 * 1000.0)
)

// apply evaluates the parameters at decimal year t and applies the transform
// to v. With inverse set, the sign-reversed parameters are applied, which is
// the standard small-parameter inverse (residual error well below 1e-9 m).
func (h helmert) apply(v Vec3, t float64, inverse bool) Vec3 {
	dt := t - h.epoch

	tx := (h.tx + h.dtx*dt) * mmToM
	ty := (h.ty + h.dty*dt) * mmToM
	tz := (h.tz + h.dtz*dt) * mmToM
	d := (h.d + h.dd*dt) * ppbToOne
	rx := (h.rx + h.drx*dt) * masToRad
	ry := (h.ry + h.dry*dt) * masToRad
	rz := (h.rz + h.drz*dt) * masToRad

	if inverse {
		tx, ty, tz = -tx, -ty, -tz
		d = -d
		rx, ry, rz = -rx, -ry, -rz
	}

	return Vec3{
		X: v.X + tx + d*v.X - rz*v.Y + ry*v.Z,
		Y: v.Y + ty + rz*v.X + d*v.Y - rx*v.Z,
		Z: v.Z + tz - ry*v.X + rx*v.Y + d*v.Z,
	}
}

// step is one Helmert application in a composed frame conversion.
type step struct {
	h   helmert
	inv bool
}

// framePath returns the Helmert steps converting a cartesian position from
// src to dst, composing through ITRF2014 when needed.
func framePath(src, dst Frame) ([]step, error) {
	if !Supported(src) {
		return nil, fmt.Errorf("unsupported source frame %q (supported: %v)", src, SupportedFrames())
	}
	if !Supported(dst) {
		return nil, fmt.Errorf("unsupported target frame %q (supported: %v)", dst, SupportedFrames())
	}
	if src == dst {
		return nil, nil
	}

	var steps []step
	// Climb from src to the ITRF2014 pivot.
	switch src {
	case ITRF2014:
	case ITRF2020:
		steps = append(steps, step{h: toITRF2020[ITRF2014]})
	default:
		steps = append(steps, step{h: toITRF2014[src], inv: true})
	}
	// Descend from the pivot to dst.
	switch dst {
	case ITRF2014:
	case ITRF2020:
		steps = append(steps, step{h: toITRF2020[ITRF2014], inv: true})
	default:
		steps = append(steps, step{h: toITRF2014[dst]})
	}
	return steps, nil
}
