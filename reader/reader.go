// Package reader parses heterogeneous altimetry granule files into the
// common point-batch schema. Supported formats: ATM1B QFIT binary (.qi),
// ILATM1B v2 HDF5 (.h5), ILVIS2 whitespace text, and GLAH06 HDF5.
package reader

import (
	"context"
	"fmt"

	"github.com/cryodata/iceflow/internal/logging"
	"github.com/cryodata/iceflow/model"
)

// Reader parses downloaded granule files into point batches.
type Reader struct {
	log logging.Logger
}

// New constructs a Reader. A nil logger is replaced with a no-op logger.
func New(log logging.Logger) *Reader {
	if log == nil {
		log = logging.Noop()
	}
	return &Reader{log: log}
}

// Read parses the granule file at path according to the dataset it belongs
// to and returns a batch in the common schema, tagged with the dataset label
// and the per-record source reference frame.
func (r *Reader) Read(ctx context.Context, dataset model.Dataset, path string) (*model.PointBatch, error) {
	if err := dataset.Validate(); err != nil {
		return nil, err
	}

	var (
		batch *model.PointBatch
		err   error
	)
	switch dataset.ShortName {
	case model.ShortNameILATM1B, model.ShortNameBLATM1B:
		batch, err = r.readATM1B(ctx, path)
	case model.ShortNameILVIS2:
		batch, err = r.readILVIS2(ctx, path)
	case model.ShortNameGLAH06:
		batch, err = r.readGLAH06(ctx, path)
	default:
		return nil, fmt.Errorf("no reader for dataset %s", dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s granule %s: %w", dataset, path, err)
	}

	batch.Dataset = dataset.String()
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("read %s granule %s: %w", dataset, path, err)
	}
	return batch, nil
}

// shiftLon shifts a longitude from [0,360) to [-180,180).
func shiftLon(lon float64) float64 {
	if lon >= 180.0 {
		return lon - 360.0
	}
	return lon
}
