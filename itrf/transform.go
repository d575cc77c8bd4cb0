package itrf

import (
	"fmt"
	"time"

	"github.com/cryodata/iceflow/model"
)

// Options control the optional epoch-propagation step of a transform.
type Options struct {
	// TargetEpoch, when non-zero, is the decimal year coordinates are
	// propagated to with the plate motion model.
	TargetEpoch float64

	// Plate overrides plate selection for epoch propagation. When empty the
	// plate is inferred per source-frame chunk from its mean position.
	Plate Plate
}

// Transform converts a point batch's lat/lon/elev from each record's source
// frame to the target frame, returning a new batch tagged with the target
// frame. Chunks already in the target frame are passed through untouched
// unless an epoch propagation was requested. Record order is preserved.
func Transform(batch *model.PointBatch, target Frame, opts Options) (*model.PointBatch, error) {
	if !Check(string(target)) {
		return nil, fmt.Errorf("the provided ITRF string was not recognized: %q;"+
			" ITRF strings have the form ITRFYY or ITRFYYYY", target)
	}
	target, err := Normalize(string(target))
	if err != nil {
		return nil, err
	}
	if !Supported(target) {
		return nil, fmt.Errorf("unsupported target frame %q (supported: %v)", target, SupportedFrames())
	}
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("transform input: %w", err)
	}

	out := batch.Clone()

	// Group record indices by source frame so per-chunk work (frame path,
	// plate inference) happens once per frame.
	chunks := make(map[Frame][]int)
	for i, tag := range batch.ITRF {
		src, err := Normalize(tag)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		chunks[src] = append(chunks[src], i)
	}

	for src, idx := range chunks {
		if src == target && opts.TargetEpoch == 0 {
			// Passthrough chunk; only canonicalize the tag spelling.
			for _, i := range idx {
				out.ITRF[i] = string(target)
			}
			continue
		}

		steps, err := framePath(src, target)
		if err != nil {
			return nil, err
		}

		plate := opts.Plate
		if opts.TargetEpoch != 0 && plate == "" {
			var sumLat, sumLon float64
			for _, i := range idx {
				sumLat += batch.Latitude[i]
				sumLon += batch.Longitude[i]
			}
			n := float64(len(idx))
			plate = InferPlate(sumLat/n, sumLon/n)
		}

		for _, i := range idx {
			t := DecimalYear(batch.UTCDateTime[i])
			v := GeodeticToCartesian(batch.Latitude[i], batch.Longitude[i], batch.Elevation[i])

			for _, s := range steps {
				v = s.h.apply(v, t, s.inv)
			}
			if opts.TargetEpoch != 0 {
				if v, err = propagate(v, plate, t, opts.TargetEpoch); err != nil {
					return nil, err
				}
			}

			lat, lon, h := CartesianToGeodetic(v)
			out.Latitude[i] = lat
			out.Longitude[i] = lon
			out.Elevation[i] = h
			out.ITRF[i] = string(target)
		}
	}

	return out, nil
}

// DecimalYear converts a UTC timestamp to a decimal year, with the year
// fraction computed from elapsed seconds within the (leap-aware) year.
func DecimalYear(t time.Time) float64 {
	t = t.UTC()
	year := t.Year()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	elapsed := t.Sub(start).Seconds()
	duration := end.Sub(start).Seconds()
	return float64(year) + elapsed/duration
}
