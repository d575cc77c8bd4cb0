package model

import (
	"fmt"
	"math"
	"time"
)

// PointBatch is a columnar frame of harmonized altimetry point records.
//
// The common columns (timestamp, source reference frame, latitude, longitude,
// elevation) are always present and equal in length. Dataset-specific fields
// are carried in Extra and kept aligned with the common columns; readers fill
// columns a particular file format lacks with NaN so batches from the same
// dataset always share one column set.
type PointBatch struct {
	// Dataset labels the batch origin, e.g. "ILATM1Bv2". Empty for merged
	// batches spanning datasets.
	Dataset string

	UTCDateTime []time.Time
	ITRF        []string
	Latitude    []float64
	Longitude   []float64
	Elevation   []float64

	Extra map[string][]float64
}

// NewPointBatch allocates an empty batch with capacity n.
func NewPointBatch(dataset string, n int) *PointBatch {
	return &PointBatch{
		Dataset:     dataset,
		UTCDateTime: make([]time.Time, 0, n),
		ITRF:        make([]string, 0, n),
		Latitude:    make([]float64, 0, n),
		Longitude:   make([]float64, 0, n),
		Elevation:   make([]float64, 0, n),
		Extra:       make(map[string][]float64),
	}
}

// Len returns the number of point records in the batch.
func (b *PointBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Latitude)
}

// Validate checks the batch invariants: all columns equal in length and every
// record tagged with a source reference frame.
func (b *PointBatch) Validate() error {
	n := b.Len()
	if len(b.UTCDateTime) != n || len(b.ITRF) != n ||
		len(b.Longitude) != n || len(b.Elevation) != n {
		return fmt.Errorf("point batch %q has ragged columns: time=%d itrf=%d lat=%d lon=%d elev=%d",
			b.Dataset, len(b.UTCDateTime), len(b.ITRF), n, len(b.Longitude), len(b.Elevation))
	}
	for name, col := range b.Extra {
		if len(col) != n {
			return fmt.Errorf("point batch %q extra column %q has length %d, want %d",
				b.Dataset, name, len(col), n)
		}
	}
	for i, tag := range b.ITRF {
		if tag == "" {
			return fmt.Errorf("point batch %q record %d has no reference frame tag", b.Dataset, i)
		}
	}
	return nil
}

// Append appends all records of other onto b. Extra columns present in only
// one side are padded with NaN so both column sets survive the merge.
func (b *PointBatch) Append(other *PointBatch) {
	if other.Len() == 0 {
		return
	}
	oldLen := b.Len()

	b.UTCDateTime = append(b.UTCDateTime, other.UTCDateTime...)
	b.ITRF = append(b.ITRF, other.ITRF...)
	b.Latitude = append(b.Latitude, other.Latitude...)
	b.Longitude = append(b.Longitude, other.Longitude...)
	b.Elevation = append(b.Elevation, other.Elevation...)

	if b.Extra == nil && len(other.Extra) > 0 {
		b.Extra = make(map[string][]float64, len(other.Extra))
	}
	for name, col := range other.Extra {
		dst, ok := b.Extra[name]
		if !ok {
			dst = nanColumn(oldLen)
		}
		b.Extra[name] = append(dst, col...)
	}
	// Pad columns other did not have.
	for name, col := range b.Extra {
		if _, ok := other.Extra[name]; !ok && len(col) < b.Len() {
			b.Extra[name] = append(col, nanColumn(other.Len())...)
		}
	}
	if b.Dataset != other.Dataset {
		b.Dataset = ""
	}
}

// Concat merges batches into a single batch. Returns an empty batch when
// called with no input.
func Concat(batches ...*PointBatch) *PointBatch {
	total := 0
	for _, in := range batches {
		total += in.Len()
	}
	out := NewPointBatch("", total)
	if len(batches) > 0 {
		out.Dataset = batches[0].Dataset
	}
	for _, in := range batches {
		out.Append(in)
	}
	return out
}

// Clone returns a deep copy of the batch. Transformations operate on clones
// so callers keep the untransformed coordinates.
func (b *PointBatch) Clone() *PointBatch {
	out := &PointBatch{
		Dataset:     b.Dataset,
		UTCDateTime: append([]time.Time(nil), b.UTCDateTime...),
		ITRF:        append([]string(nil), b.ITRF...),
		Latitude:    append([]float64(nil), b.Latitude...),
		Longitude:   append([]float64(nil), b.Longitude...),
		Elevation:   append([]float64(nil), b.Elevation...),
	}
	if b.Extra != nil {
		out.Extra = make(map[string][]float64, len(b.Extra))
		for name, col := range b.Extra {
			out.Extra[name] = append([]float64(nil), col...)
		}
	}
	return out
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
