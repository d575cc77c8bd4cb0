package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/cryodata/iceflow/model"
)

// GLAH06 positions are published in ITRF2000 on the TOPEX/Poseidon
// ellipsoid; the d_deltaEllip extra column carries the per-point offset to
// the WGS84 ellipsoid for callers that need to re-reference elevations.
const glah06ITRF = "ITRF2000"

// glah06Epoch is the J2000 base of the d_UTCTime_40 variable (seconds since
// 2000-01-01 12:00:00 UTC).
var glah06Epoch = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// glah06ExtraVariables are the 40Hz correction/quality variables carried
// alongside the common columns. All of these variables come from the
// "Data_40HZ" group; the 1Hz group duplicates them at lower rate without
// the elevation data.
var glah06ExtraVariables = []struct {
	column string
	path   string
}{
	{"i_rec_ndx", "Data_40HZ/Time/i_rec_ndx"},
	{"i_shot_count", "Data_40HZ/Time/i_shot_count"},
	{"d_refRng", "Data_40HZ/Elevation_Offsets/d_refRng"},
	{"d_satElevCorr", "Data_40HZ/Elevation_Corrections/d_satElevCorr"},
	{"d_ElevBiasCorr", "Data_40HZ/Elevation_Corrections/d_ElevBiasCorr"},
	{"d_GmC", "Data_40HZ/Elevation_Corrections/d_GmC"},
	{"d_dTrop", "Data_40HZ/Elevation_Corrections/d_dTrop"},
	{"d_wTrop", "Data_40HZ/Elevation_Corrections/d_wTrop"},
	{"d_deltaEllip", "Data_40HZ/Geophysical/d_deltaEllip"},
	{"d_DEM_elv", "Data_40HZ/Geophysical/d_DEM_elv"},
	{"d_erElv", "Data_40HZ/Geophysical/d_erElv"},
	{"d_eqElv", "Data_40HZ/Geophysical/d_eqElv"},
	{"d_ldElv", "Data_40HZ/Geophysical/d_ldElv"},
	{"d_ocElv", "Data_40HZ/Geophysical/d_ocElv"},
	{"d_poTide", "Data_40HZ/Geophysical/d_poTide"},
	{"d_gdHt", "Data_40HZ/Geophysical/d_gdHt"},
	{"elev_use_flg", "Data_40HZ/Quality/elev_use_flg"},
	{"sigma_att_flg", "Data_40HZ/Quality/sigma_att_flg"},
	{"sat_corr_flg", "Data_40HZ/Quality/sat_corr_flg"},
	{"d_reflctUC", "Data_40HZ/Reflectivity/d_reflctUC"},
}

// readGLAH06 reads an ICESat/GLAS GLAH06 granule's 40Hz elevation group.
func (r *Reader) readGLAH06(_ context.Context, path string) (*model.PointBatch, error) {
	f, err := openHDF5(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return glah06Batch(f)
}

func glah06Batch(f varSource) (*model.PointBatch, error) {
	seconds, err := f.floats("Data_40HZ/Time/d_UTCTime_40")
	if err != nil {
		return nil, err
	}
	lats, err := f.floats("Data_40HZ/Geolocation/d_lat")
	if err != nil {
		return nil, err
	}
	lons, err := f.floats("Data_40HZ/Geolocation/d_lon")
	if err != nil {
		return nil, err
	}
	elevs, err := f.floats("Data_40HZ/Elevation_Surfaces/d_elev")
	if err != nil {
		return nil, err
	}

	n := len(seconds)
	if len(lats) != n || len(lons) != n || len(elevs) != n {
		return nil, fmt.Errorf("ragged Data_40HZ variables: time=%d lat=%d lon=%d elev=%d",
			n, len(lats), len(lons), len(elevs))
	}

	batch := model.NewPointBatch("", n)
	for i := 0; i < n; i++ {
		batch.UTCDateTime = append(batch.UTCDateTime,
			glah06Epoch.Add(time.Duration(seconds[i]*float64(time.Second))))
		batch.ITRF = append(batch.ITRF, glah06ITRF)
		batch.Latitude = append(batch.Latitude, lats[i])
		batch.Longitude = append(batch.Longitude, shiftLon(lons[i]))
		batch.Elevation = append(batch.Elevation, elevs[i])
	}

	for _, v := range glah06ExtraVariables {
		col, err := f.floats(v.path)
		if err != nil {
			return nil, err
		}
		if len(col) != n {
			return nil, fmt.Errorf("variable %q has %d values, want %d", v.path, len(col), n)
		}
		batch.Extra[v.column] = col
	}
	return batch, nil
}
