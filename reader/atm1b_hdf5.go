package reader

import (
	"fmt"
	"math"
	"time"

	"github.com/cryodata/iceflow/itrf"
	"github.com/cryodata/iceflow/model"
)

// ilatm1bV2Variables maps batch columns onto ILATM1B v2 HDF5 variables. The
// scale factors restore the raw integer units of the QFIT generation so v1
// and v2 batches carry comparable extra columns.
var ilatm1bV2Variables = []struct {
	column string
	path   string
	scale  float64
}{
	{"rel_time", "instrument_parameters/rel_time", 1000},
	{"latitude", "latitude", 1},
	{"longitude", "longitude", 1},
	{"elevation", "elevation", 1},
	{"xmt_sigstr", "instrument_parameters/xmt_sigstr", 1},
	{"rcv_sigstr", "instrument_parameters/rcv_sigstr", 1},
	{"azimuth", "instrument_parameters/azimuth", 1000},
	{"pitch", "instrument_parameters/pitch", 1000},
	{"roll", "instrument_parameters/roll", 1000},
	{"gps_pdop", "instrument_parameters/gps_pdop", 10},
	{"pulse_width", "instrument_parameters/pulse_width", 1},
	{"gps_time", "instrument_parameters/time_hhmmss", 1000},
}

// readATM1BHDF5 reads an ILATM1B v2 granule. Unlike the QFIT generation,
// positions are already stored in degrees and metres.
func (r *Reader) readATM1BHDF5(path string, fileDate time.Time) (*model.PointBatch, error) {
	f, err := openHDF5(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ilatm1bV2Batch(f, fileDate)
}

func ilatm1bV2Batch(f varSource, fileDate time.Time) (*model.PointBatch, error) {
	columns := make(map[string][]float64, len(ilatm1bV2Variables))
	n := -1
	for _, v := range ilatm1bV2Variables {
		col, err := f.floats(v.path)
		if err != nil {
			return nil, err
		}
		if v.scale != 1 {
			for i := range col {
				col[i] = math.Trunc(col[i] * v.scale)
			}
		}
		if n >= 0 && len(col) != n {
			return nil, fmt.Errorf("variable %q has %d values, want %d", v.path, len(col), n)
		}
		n = len(col)
		columns[v.column] = col
	}

	batch := model.NewPointBatch("", n)
	for _, name := range atm1bExtraColumns {
		batch.Extra[name] = make([]float64, 0, n)
	}

	fields := make(map[string]float64, len(columns))
	for i := 0; i < n; i++ {
		for name, col := range columns {
			fields[name] = col[i]
		}
		// Positions are native degrees/metres here; undo the QFIT raw-unit
		// scaling appendATM1BRecord applies.
		fields["latitude"] *= 1e6
		fields["longitude"] *= 1e6
		fields["elevation"] *= 1e3
		appendATM1BRecord(batch, fields, fileDate)
	}
	return batch, nil
}

// itrfFromHDF5 reads the reference frame recorded in an ILATM1B v2 granule.
func itrfFromHDF5(path string) (string, error) {
	f, err := openHDF5(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	frame, err := hdf5Frame(f)
	if err != nil {
		return "", fmt.Errorf("granule %q: %w", path, err)
	}
	return frame, nil
}

func hdf5Frame(f varSource) (string, error) {
	raw, err := f.firstString("ancillary_data/reference_frame")
	if err != nil {
		return "", err
	}
	frame, err := itrf.Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("unrecognizable reference frame %q", raw)
	}
	return string(frame), nil
}
