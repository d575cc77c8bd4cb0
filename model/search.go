package model

import (
	"fmt"
	"time"
)

// SearchParameters describe a spatio-temporal granule query across one or
// more datasets. An empty Datasets slice means "all supported datasets".
type SearchParameters struct {
	Datasets    []Dataset
	BoundingBox BoundingBox
	Start       time.Time
	End         time.Time
}

// EffectiveDatasets returns the datasets to search, defaulting to every
// supported dataset version when none were selected.
func (p SearchParameters) EffectiveDatasets() []Dataset {
	if len(p.Datasets) == 0 {
		return AllDatasets()
	}
	return p.Datasets
}

// Validate checks the bounding box, temporal range, and dataset selection.
func (p SearchParameters) Validate() error {
	if err := p.BoundingBox.Validate(); err != nil {
		return err
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("temporal range requires both start and end")
	}
	if !p.Start.Before(p.End) {
		return fmt.Errorf("temporal range start %s is not before end %s",
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	for _, d := range p.EffectiveDatasets() {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Granule is a single discoverable/downloadable unit of data returned by a
// catalog search.
type Granule struct {
	Dataset    Dataset
	ProducerID string // producer granule ID, typically the filename
	Title      string
	SizeBytes  int64
	URL        string // HTTPS download location
	Start      time.Time
	End        time.Time
}
