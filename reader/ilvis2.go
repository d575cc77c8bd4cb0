package reader

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cryodata/iceflow/model"
)

// The ILVIS2 user guide gives ITRF2000 as the product reference frame.
const ilvis2ITRF = "ITRF2000"

// LVIS Data Structure v1.0.4, used for granules before 2017. Field names
// follow the LVIS site documentation; NSIDC files spell some differently
// (CLON = LONGITUDE_CENTROID, ZG = ELEVATION_LOW, ...).
var ilvis2V104Fields = []string{
	"LFID", "SHOTNUMBER", "TIME",
	"CLON", "CLAT", "ZC",
	"GLON", "GLAT", "ZG",
	"HLON", "HLAT", "ZH",
}

// LVIS Data Structure v2.0.2b, used for Greenland 2017 onward.
var ilvis2V202bFields = []string{
	"LFID", "SHOTNUMBER", "TIME",
	"GLON", "GLAT", "ZG",
	"HLON", "HLAT", "ZH",
	"TLON", "TLAT", "ZT",
	"RH10", "RH15", "RH20", "RH25", "RH30", "RH35", "RH40", "RH45",
	"RH50", "RH55", "RH60", "RH65", "RH70", "RH75", "RH80", "RH85",
	"RH90", "RH95", "RH96", "RH97", "RH98", "RH99", "RH100",
	"AZIMUTH", "INCIDENT_ANGLE", "RANGE", "COMPLEXITY",
	"CHANNEL_ZT", "CHANNEL_ZG", "CHANNEL_RH",
}

// Longitude fields are stored in [0,360) and shifted to [-180,180).
var ilvis2LongitudeFields = map[string]bool{
	"CLON": true, "GLON": true, "HLON": true, "TLON": true,
}

var ilvis2NamePattern = regexp.MustCompile(`_[A-Za-z]{2}(\d{4})_(\d{4})_`)

// ilvis2ExtraColumns is the union of both layout field sets, so batches from
// either product generation share one column set (version-specific fields
// are NaN in the other generation).
var ilvis2ExtraColumns = unionColumns(ilvis2V104Fields, ilvis2V202bFields)

func unionColumns(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// readILVIS2 reads an ILVIS2 whitespace-delimited text granule. The layout
// generation is chosen by the campaign year in the filename: v1.0.4 before
// 2017, v2.0.2b from 2017 on.
func (r *Reader) readILVIS2(_ context.Context, path string) (*model.PointBatch, error) {
	filename := filepath.Base(path)
	m := ilvis2NamePattern.FindStringSubmatch(filename)
	if m == nil {
		return nil, fmt.Errorf("failed to extract campaign date from ILVIS2 filename %q", filename)
	}
	year := atoiMust(m[1])
	fileDate, err := time.Parse("20060102", m[1]+m[2])
	if err != nil {
		return nil, fmt.Errorf("ILVIS2 filename %q: %w", filename, err)
	}

	layout := ilvis2V104Fields
	if year >= 2017 {
		layout = ilvis2V202bFields
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	batch := model.NewPointBatch("", 0)
	for _, name := range ilvis2ExtraColumns {
		batch.Extra[name] = []float64{}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != len(layout) {
			return nil, fmt.Errorf("line %d has %d fields, want %d for the %d-field layout",
				lineNo, len(fields), len(layout), len(layout))
		}

		row := make(map[string]float64, len(layout))
		for i, name := range layout {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %s: %w", lineNo, name, err)
			}
			if ilvis2LongitudeFields[name] {
				v = shiftLon(v)
			}
			row[name] = v
		}

		// Common columns come from the lowest-mode set, which both layouts
		// share; TIME is UTC seconds of day on the campaign date.
		batch.UTCDateTime = append(batch.UTCDateTime,
			fileDate.Add(time.Duration(row["TIME"]*float64(time.Second))))
		batch.ITRF = append(batch.ITRF, ilvis2ITRF)
		batch.Latitude = append(batch.Latitude, row["GLAT"])
		batch.Longitude = append(batch.Longitude, row["GLON"])
		batch.Elevation = append(batch.Elevation, row["ZG"])

		for _, name := range ilvis2ExtraColumns {
			v, ok := row[name]
			if !ok {
				v = math.NaN()
			}
			batch.Extra[name] = append(batch.Extra[name], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}
