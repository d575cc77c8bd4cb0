package reader

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cryodata/iceflow/internal/logging"
	"github.com/cryodata/iceflow/itrf"
	"github.com/cryodata/iceflow/model"
)

// QFIT record layouts keyed by word count, per the ATM1B QFIT readme
// (https://nsidc.org/sites/nsidc.org/files/files/ReadMe_qfit.txt). Each word
// is a 32-bit signed integer; byte order varies per file.
var qfitLayouts = map[int][]string{
	10: {
		"rel_time", "latitude", "longitude", "elevation",
		"xmt_sigstr", "rcv_sigstr", "azimuth", "pitch", "roll",
		"gps_time",
	},
	12: {
		"rel_time", "latitude", "longitude", "elevation",
		"xmt_sigstr", "rcv_sigstr", "azimuth", "pitch", "roll",
		"gps_pdop", "pulse_width", "gps_time",
	},
	14: {
		"rel_time", "latitude", "longitude", "elevation",
		"xmt_sigstr", "rcv_sigstr", "azimuth", "pitch", "roll",
		"passive_signal", "passive_footprint_latitude",
		"passive_footprint_longitude",
		"passive_footprint_synthesized_elevation",
		"gps_time",
	},
}

// atm1bExtraColumns is the full extra-field set every ATM1B batch carries;
// fields absent from a particular layout are NaN-filled.
var atm1bExtraColumns = []string{
	"rel_time", "xmt_sigstr", "rcv_sigstr", "azimuth", "pitch", "roll",
	"gps_pdop", "gps_time", "passive_signal",
	"passive_footprint_latitude", "passive_footprint_longitude",
	"passive_footprint_synthesized_elevation", "pulse_width",
}

var (
	atm1bYearPattern   = regexp.MustCompile(`.*_(\d{4})\d{4}.*`)
	ilatm1bDatePattern = regexp.MustCompile(`_(\d{8})_`)
	blatm1bDate8       = regexp.MustCompile(`BLATM1B_(\d{8})`)
	blatm1bDate6       = regexp.MustCompile(`BLATM1B_(\d{6})`)
	qfitITRFPattern    = regexp.MustCompile(`itrf\d{2,4}`)
)

// readATM1B reads an ILATM1B/BLATM1B granule. The acquisition year encoded
// in the filename selects the product generation: 2013 onward is ILATM1B v2
// in HDF5, 2009-2012 is ILATM1B v1 QFIT, and everything earlier is
// pre-IceBridge BLATM1B QFIT.
//
// Example filenames:
//
//	ILATM1B_20140430_110310.ATM4BT4.h5
//	ILATM1B_20111104_181304.ATM4BT4.qi
//	BLATM1B_20060522_145449.qi
//	BLATM1B_20041127atm2_210316jr.lutF.qi
func (r *Reader) readATM1B(ctx context.Context, path string) (*model.PointBatch, error) {
	filename := filepath.Base(path)

	m := atm1bYearPattern.FindStringSubmatch(filename)
	if m == nil {
		return nil, fmt.Errorf("failed to recognize %q as ATM1B data", filename)
	}
	year := atoiMust(m[1])

	var (
		fileDate time.Time
		batch    *model.PointBatch
		err      error
	)
	switch {
	case year >= 2013:
		if fileDate, err = ilatm1bDate(filename); err != nil {
			return nil, err
		}
		batch, err = r.readATM1BHDF5(path, fileDate)
	case year >= 2009:
		if fileDate, err = ilatm1bDate(filename); err != nil {
			return nil, err
		}
		batch, err = r.readQFIT(path, fileDate)
	default:
		if fileDate, err = blatm1bDate(filename); err != nil {
			return nil, err
		}
		batch, err = r.readQFIT(path, fileDate)
	}
	if err != nil {
		return nil, err
	}

	frame, err := r.extractITRF(ctx, path, fileDate)
	if err != nil {
		return nil, err
	}
	for i := range batch.ITRF {
		batch.ITRF[i] = frame
	}
	return batch, nil
}

// qfitRecordSize reads the leading record-size word and determines the file
// byte order: sizes of 100 bytes or more under one ordering mean the other
// ordering is in use.
func qfitRecordSize(raw []byte) (size int, order binary.ByteOrder, err error) {
	if len(raw) < 4 {
		return 0, nil, fmt.Errorf("file too short for a QFIT record-size word")
	}
	size = int(int32(binary.BigEndian.Uint32(raw[:4])))
	if size < 100 {
		return size, binary.BigEndian, nil
	}
	size = int(int32(binary.LittleEndian.Uint32(raw[:4])))
	if size < 100 {
		return size, binary.LittleEndian, nil
	}
	return 0, nil, fmt.Errorf("invalid QFIT record size found")
}

// readQFIT reads an ATM1B QFIT binary file, stripping header records and
// invalid data, and converts raw integer words to the common schema.
func (r *Reader) readQFIT(path string, fileDate time.Time) (*model.PointBatch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	recordSize, order, err := qfitRecordSize(raw)
	if err != nil {
		return nil, err
	}
	wordCount := recordSize / 4
	layout, ok := qfitLayouts[wordCount]
	if !ok {
		return nil, fmt.Errorf("unknown QFIT layout with %d words per record", wordCount)
	}

	recordCount := len(raw) / recordSize
	if recordCount < 2 {
		return nil, fmt.Errorf("QFIT file holds no data records")
	}

	// The first record is always a header; further leading records with a
	// negative first word are additional header text.
	first := 1
	for first < recordCount && int32(order.Uint32(raw[first*recordSize:])) < 0 {
		first++
	}

	batch := model.NewPointBatch("", recordCount-first)
	for _, name := range atm1bExtraColumns {
		batch.Extra[name] = make([]float64, 0, recordCount-first)
	}

	words := make([]int32, wordCount)
	for rec := first; rec < recordCount; rec++ {
		off := rec * recordSize
		for w := 0; w < wordCount; w++ {
			words[w] = int32(order.Uint32(raw[off+4*w:]))
		}

		fields := make(map[string]float64, wordCount)
		for w, name := range layout {
			fields[name] = float64(words[w])
		}

		// 14-word records containing passive brightness data can carry
		// invalid rows; drop them.
		if wordCount == 14 && (fields["latitude"] == 0 || fields["elevation"] == -9999) {
			continue
		}

		appendATM1BRecord(batch, fields, fileDate)
	}

	if batch.Len() == 0 {
		r.log.Warn(context.Background(), "QFIT file contains no valid data after filtering",
			logging.String("path", path))
	}
	return batch, nil
}

// appendATM1BRecord scales one raw record and appends it to the batch.
// Raw units: lat/lon in microdegrees, elevation in millimetres, GPS time in
// packed hhmmss milliseconds.
func appendATM1BRecord(batch *model.PointBatch, fields map[string]float64, fileDate time.Time) {
	lat := fields["latitude"] * 1e-6
	lon := shiftLon(fields["longitude"] * 1e-6)
	elev := fields["elevation"] * 1e-3

	batch.Latitude = append(batch.Latitude, lat)
	batch.Longitude = append(batch.Longitude, lon)
	batch.Elevation = append(batch.Elevation, elev)
	batch.UTCDateTime = append(batch.UTCDateTime, gpsPackedToUTC(fields["gps_time"], fileDate))
	batch.ITRF = append(batch.ITRF, "unknown") // set after frame inference

	for _, name := range atm1bExtraColumns {
		v, ok := fields[name]
		if !ok {
			v = math.NaN()
		}
		batch.Extra[name] = append(batch.Extra[name], v)
	}
}

// gpsPackedToUTC converts an ATM1B packed GPS timestamp
// (hh*1e7 + mm*1e5 + ss*1e3 + milliseconds) on the given file date to UTC,
// applying the GPS leap-second offset.
func gpsPackedToUTC(packed float64, fileDate time.Time) time.Time {
	p := int64(packed)
	hour := int(p / 1e7)
	minute := int(p % 1e7 / 1e5)
	second := int(p % 1e5 / 1e3)
	milli := int(p % 1e3)

	ts := time.Date(fileDate.Year(), fileDate.Month(), fileDate.Day(),
		hour, minute, second, milli*int(time.Millisecond), time.UTC)
	return ts.Add(-time.Duration(leapSeconds(fileDate)) * time.Second)
}

// ilatm1bDate extracts the acquisition date from an ILATM1B filename.
func ilatm1bDate(filename string) (time.Time, error) {
	m := ilatm1bDatePattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("failed to extract date from filename %q", filename)
	}
	return time.Parse("20060102", m[1])
}

// blatm1bDate extracts the acquisition date from a BLATM1B filename. Old
// files encode a two-digit year; anything above 09 is read as 19xx.
func blatm1bDate(filename string) (time.Time, error) {
	if m := blatm1bDate8.FindStringSubmatch(filename); m != nil {
		return time.Parse("20060102", m[1])
	}
	m := blatm1bDate6.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("failed to extract date from BLATM1B v1 filename %q", filename)
	}
	s := m[1]
	if atoiMust(s[:2]) > 9 {
		s = "19" + s
	} else {
		s = "20" + s
	}
	return time.Parse("20060102", s)
}

// extractITRF determines the source reference frame of an ATM1B granule.
// QFIT files are inferred from their header (falling back to the dated
// range table); HDF5 files carry the frame in ancillary data.
func (r *Reader) extractITRF(ctx context.Context, path string, fileDate time.Time) (string, error) {
	switch ext := filepath.Ext(path); ext {
	case ".qi":
		return r.inferQFITITRF(ctx, path, fileDate)
	case ".h5":
		return itrfFromHDF5(path)
	default:
		return "", fmt.Errorf("failed to read ITRF from unrecognized file %q", path)
	}
}

// inferQFITITRF scans the QFIT header text for a frame name. A single header
// frame wins over the date table (with a warning on disagreement); a missing
// or ambiguous header frame falls back to the date table.
func (r *Reader) inferQFITITRF(ctx context.Context, path string, fileDate time.Time) (string, error) {
	header, err := qfitHeaderText(path)
	if err != nil {
		return "", err
	}

	seen := map[string]bool{}
	for _, match := range qfitITRFPattern.FindAllString(strings.ToLower(header), -1) {
		seen[match] = true
	}

	frameForDate, dateErr := itrfFromDate(fileDate)

	if len(seen) > 1 {
		frames := make([]string, 0, len(seen))
		for match := range seen {
			frames = append(frames, match)
		}
		sort.Strings(frames)
		if dateErr != nil {
			return "", fmt.Errorf("QFIT header of %q names multiple frames %v and %w", path, frames, dateErr)
		}
		r.log.Warn(ctx, "QFIT header names multiple frames; falling back to dated frame table",
			logging.String("path", path),
			logging.String("header_itrfs", strings.Join(frames, " ")),
			logging.String("itrf", frameForDate))
		return frameForDate, nil
	}

	if len(seen) == 1 {
		var headerFrame string
		for match := range seen {
			f, err := itrf.Normalize(match)
			if err != nil {
				return "", fmt.Errorf("QFIT header of %q names unrecognizable frame %q", path, match)
			}
			headerFrame = string(f)
		}
		if dateErr == nil && frameForDate != headerFrame {
			r.log.Warn(ctx, "QFIT header frame disagrees with expected frame for date; using header",
				logging.String("path", path),
				logging.String("header_itrf", headerFrame),
				logging.String("expected_itrf", frameForDate))
		}
		return headerFrame, nil
	}

	if dateErr != nil {
		return "", fmt.Errorf("no frame in QFIT header of %q and %w", path, dateErr)
	}
	r.log.Warn(ctx, "no frame found in QFIT header; falling back to dated frame table",
		logging.String("path", path),
		logging.String("itrf", frameForDate))
	return frameForDate, nil
}

// qfitHeaderText returns the concatenated text of the leading header
// records (negative first word) after the two fixed records at the top of
// the file.
func qfitHeaderText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	recordSize, order, err := qfitRecordSize(raw)
	if err != nil {
		return "", err
	}
	recordCount := len(raw) / recordSize
	if recordCount <= 2 {
		return "", fmt.Errorf("failed to read QFIT file header for %q", path)
	}

	var sb strings.Builder
	for rec := 2; rec < recordCount; rec++ {
		off := rec * recordSize
		if int32(order.Uint32(raw[off:])) >= 0 {
			break
		}
		sb.Write(raw[off+4 : off+recordSize])
	}
	return sb.String(), nil
}

func atoiMust(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
