package reader

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cryodata/iceflow/model"
)

// writeQFIT assembles a synthetic QFIT file: a record-size record, one empty
// header record, optional text header records, then the data records.
func writeQFIT(t *testing.T, path string, order binary.ByteOrder, wordCount int, headerText string, data [][]int32) {
	t.Helper()
	recordSize := wordCount * 4

	var buf bytes.Buffer
	rec := make([]byte, recordSize)
	order.PutUint32(rec, uint32(int32(recordSize)))
	buf.Write(rec)

	rec = make([]byte, recordSize)
	order.PutUint32(rec, uint32(int32(-recordSize)))
	buf.Write(rec)

	text := []byte(headerText)
	for len(text) > 0 {
		rec = bytes.Repeat([]byte{' '}, recordSize)
		order.PutUint32(rec, uint32(int32(-recordSize)))
		n := copy(rec[4:], text)
		text = text[n:]
		buf.Write(rec)
	}

	for _, words := range data {
		if len(words) != wordCount {
			t.Fatalf("data record has %d words, want %d", len(words), wordCount)
		}
		rec = make([]byte, recordSize)
		for i, w := range words {
			order.PutUint32(rec[4*i:], uint32(w))
		}
		buf.Write(rec)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadQFIT12WordBigEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ILATM1B_20110401_181304.ATM4BT4.qi")
	// rel_time, lat, lon, elev, xmt, rcv, azimuth, pitch, roll,
	// gps_pdop, pulse_width, gps_time
	writeQFIT(t, path, binary.BigEndian, 12, "version 2011 itrf2005 qfit",
		[][]int32{
			{1000, 67123456, 310000000, 1234567, 5, 6, 7, 8, 9, 21, 13, 123456789},
		})

	batch, err := New(nil).Read(context.Background(), model.ILATM1Bv1(), path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if batch.Len() != 1 {
		t.Fatalf("batch has %d records, want 1", batch.Len())
	}
	if batch.Dataset != "ILATM1Bv1" {
		t.Errorf("Dataset = %q, want ILATM1Bv1", batch.Dataset)
	}

	if got := batch.Latitude[0]; math.Abs(got-67.123456) > 1e-9 {
		t.Errorf("latitude = %v, want 67.123456", got)
	}
	if got := batch.Longitude[0]; math.Abs(got-(-50.0)) > 1e-9 {
		t.Errorf("longitude = %v, want -50 (shifted from 310)", got)
	}
	if got := batch.Elevation[0]; math.Abs(got-1234.567) > 1e-9 {
		t.Errorf("elevation = %v, want 1234.567", got)
	}

	// gps 12:34:56.789 minus the 15 leap seconds in effect in 2011.
	want := time.Date(2011, time.April, 1, 12, 34, 41, 789*int(time.Millisecond), time.UTC)
	if got := batch.UTCDateTime[0]; !got.Equal(want) {
		t.Errorf("time = %v, want %v", got, want)
	}

	if got := batch.ITRF[0]; got != "ITRF2005" {
		t.Errorf("ITRF = %q, want ITRF2005 from the file header", got)
	}

	if got := batch.Extra["gps_pdop"][0]; got != 21 {
		t.Errorf("gps_pdop = %v, want 21", got)
	}
	if got := batch.Extra["pulse_width"][0]; got != 13 {
		t.Errorf("pulse_width = %v, want 13", got)
	}
	for _, name := range []string{"passive_signal", "passive_footprint_latitude"} {
		if got := batch.Extra[name][0]; !math.IsNaN(got) {
			t.Errorf("%s = %v, want NaN in a 12-word file", name, got)
		}
	}
}

func TestReadQFIT10WordLittleEndianDateFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BLATM1B_20020718_214600.qi")
	writeQFIT(t, path, binary.LittleEndian, 10, "no frame named here",
		[][]int32{
			{500, -75000000, 45000000, 2000000, 1, 2, 3, 4, 5, 10000000},
		})

	batch, err := New(nil).Read(context.Background(), model.BLATM1Bv1(), path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if batch.Len() != 1 {
		t.Fatalf("batch has %d records, want 1", batch.Len())
	}
	if got := batch.ITRF[0]; got != "ITRF2000" {
		t.Errorf("ITRF = %q, want ITRF2000 from the dated frame table", got)
	}
	if got := batch.Latitude[0]; math.Abs(got-(-75.0)) > 1e-9 {
		t.Errorf("latitude = %v, want -75", got)
	}
	if got := batch.Longitude[0]; math.Abs(got-45.0) > 1e-9 {
		t.Errorf("longitude = %v, want 45 (below the shift threshold)", got)
	}
}

func TestReadQFITAmbiguousHeaderFallsBackToDateTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ILATM1B_20110401_181304.ATM4BT4.qi")
	writeQFIT(t, path, binary.BigEndian, 10, "reprocessed from itrf2008 to itrf2005",
		[][]int32{
			{500, 67123456, 310000000, 1234567, 1, 2, 3, 4, 5, 123456789},
		})

	batch, err := New(nil).Read(context.Background(), model.ILATM1Bv1(), path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got := batch.ITRF[0]; got != "ITRF2005" {
		t.Errorf("ITRF = %q, want ITRF2005 from the dated frame table", got)
	}
}

func TestReadQFITAmbiguousHeaderOutsideDateTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BLATM1B_19970101_120000.qi")
	writeQFIT(t, path, binary.BigEndian, 10, "itrf93 or itrf94",
		[][]int32{
			{500, 67123456, 310000000, 1234567, 1, 2, 3, 4, 5, 123456789},
		})

	if _, err := New(nil).Read(context.Background(), model.BLATM1Bv1(), path); err == nil {
		t.Error("expected an error when the header is ambiguous and the date has no table entry")
	}
}

func TestReadQFIT14WordFiltersInvalidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ILATM1B_20100326_142342.ATM4BT4.qi")
	valid := []int32{100, 68000000, 300000000, 500000, 1, 2, 3, 4, 5, 6, 68000100, 300000100, 510000, 10000000}
	zeroLat := append([]int32(nil), valid...)
	zeroLat[1] = 0
	badElev := append([]int32(nil), valid...)
	badElev[3] = -9999
	writeQFIT(t, path, binary.BigEndian, 14, "itrf2005",
		[][]int32{zeroLat, valid, badElev})

	batch, err := New(nil).Read(context.Background(), model.ILATM1Bv1(), path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if batch.Len() != 1 {
		t.Fatalf("batch has %d records after filtering, want 1", batch.Len())
	}
	if got := batch.Extra["passive_signal"][0]; got != 6 {
		t.Errorf("passive_signal = %v, want 6", got)
	}
	if got := batch.Extra["pulse_width"][0]; !math.IsNaN(got) {
		t.Errorf("pulse_width = %v, want NaN in a 14-word file", got)
	}
}

func TestQFITRecordSize(t *testing.T) {
	be := make([]byte, 4)
	binary.BigEndian.PutUint32(be, 48)
	size, order, err := qfitRecordSize(be)
	if err != nil || size != 48 || order != binary.ByteOrder(binary.BigEndian) {
		t.Errorf("big endian: got (%d, %v, %v)", size, order, err)
	}

	le := make([]byte, 4)
	binary.LittleEndian.PutUint32(le, 40)
	size, order, err = qfitRecordSize(le)
	if err != nil || size != 40 || order != binary.ByteOrder(binary.LittleEndian) {
		t.Errorf("little endian: got (%d, %v, %v)", size, order, err)
	}

	if _, _, err := qfitRecordSize([]byte{0x12, 0x34, 0x56, 0x78}); err == nil {
		t.Error("expected an error for an implausible record size")
	}
	if _, _, err := qfitRecordSize([]byte{0x01}); err == nil {
		t.Error("expected an error for a truncated file")
	}
}

func TestITRFFromDate(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{date(1994, time.July, 1), "ITRF93"},
		{date(1997, time.May, 1), "ITRF94"},
		{date(1998, time.July, 1), "ITRF96"},
		{date(2000, time.June, 1), "ITRF97"},
		{date(2002, time.March, 1), "ITRF2000"},
		{date(2002, time.November, 22), "ITRF97"},
		{date(2002, time.December, 14), "ITRF97"},
		{date(2002, time.December, 15), "ITRF2000"},
		{date(2009, time.January, 1), "ITRF2005"},
		{date(2015, time.January, 1), "ITRF2008"},
	}
	for _, tc := range cases {
		got, err := itrfFromDate(tc.date)
		if err != nil {
			t.Errorf("itrfFromDate(%s) error: %v", tc.date.Format("2006-01-02"), err)
			continue
		}
		if got != tc.want {
			t.Errorf("itrfFromDate(%s) = %q, want %q", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}

	for _, d := range []time.Time{date(1990, time.January, 1), date(2020, time.June, 1), date(1997, time.January, 1)} {
		if _, err := itrfFromDate(d); err == nil {
			t.Errorf("itrfFromDate(%s) should fail outside the known ranges", d.Format("2006-01-02"))
		}
	}
}

func TestLeapSeconds(t *testing.T) {
	cases := []struct {
		at   time.Time
		want int
	}{
		{date(1980, time.June, 1), 0},
		{date(1981, time.July, 1), 1},
		{date(1994, time.August, 1), 10},
		{date(2002, time.July, 18), 13},
		{date(2011, time.April, 1), 15},
		{date(2016, time.December, 31), 17},
		{date(2017, time.January, 1), 18},
		{date(2026, time.January, 1), 18},
	}
	for _, tc := range cases {
		if got := leapSeconds(tc.at); got != tc.want {
			t.Errorf("leapSeconds(%s) = %d, want %d", tc.at.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestATM1BFileDates(t *testing.T) {
	got, err := ilatm1bDate("ILATM1B_20140430_110310.ATM4BT4.h5")
	if err != nil || !got.Equal(date(2014, time.April, 30)) {
		t.Errorf("ilatm1bDate = (%v, %v), want 2014-04-30", got, err)
	}

	got, err = blatm1bDate("BLATM1B_20060522_145449.qi")
	if err != nil || !got.Equal(date(2006, time.May, 22)) {
		t.Errorf("blatm1bDate eight digit = (%v, %v), want 2006-05-22", got, err)
	}

	got, err = blatm1bDate("BLATM1B_970516_aa_l1b.qi")
	if err != nil || !got.Equal(date(1997, time.May, 16)) {
		t.Errorf("blatm1bDate nineties = (%v, %v), want 1997-05-16", got, err)
	}

	got, err = blatm1bDate("BLATM1B_020718_bb_l1b.qi")
	if err != nil || !got.Equal(date(2002, time.July, 18)) {
		t.Errorf("blatm1bDate two thousands = (%v, %v), want 2002-07-18", got, err)
	}

	if _, err := ilatm1bDate("not_a_granule.qi"); err == nil {
		t.Error("ilatm1bDate should reject filenames without a date")
	}
}
