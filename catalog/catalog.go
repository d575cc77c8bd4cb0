// Package catalog holds the registry of datasets the library knows how to
// search, download, and read.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cryodata/iceflow/model"
)

// Descriptor describes one supported dataset version.
type Descriptor struct {
	Dataset model.Dataset
	Title   string
	Format  string // granule file format
	Frames  string // reference frame provenance notes
}

// Catalog is an in-memory, thread-safe registry of dataset descriptors.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Descriptor
}

// New constructs a catalog preloaded with every supported dataset version.
func New() *Catalog {
	c := &Catalog{entries: make(map[string]*Descriptor)}
	for _, d := range builtinDescriptors() {
		// Built-in descriptors are unique by construction.
		_ = c.Register(d)
	}
	return c
}

// Register adds a descriptor. It returns an error if the dataset version is
// already registered or does not validate.
func (c *Catalog) Register(d *Descriptor) error {
	if err := d.Dataset.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := d.Dataset.String()
	if _, exists := c.entries[key]; exists {
		return fmt.Errorf("dataset %s already registered", key)
	}
	c.entries[key] = d
	return nil
}

// Lookup returns the descriptor for a dataset version, or nil if not found.
func (c *Catalog) Lookup(dataset model.Dataset) *Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[dataset.String()]
}

// List returns a snapshot of all descriptors, sorted by dataset label.
func (c *Catalog) List() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*Descriptor, 0, len(c.entries))
	for _, d := range c.entries {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Dataset.String() < res[j].Dataset.String()
	})
	return res
}

// ValidateSearch checks that every dataset in the search parameters is
// registered.
func (c *Catalog) ValidateSearch(params model.SearchParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	for _, d := range params.EffectiveDatasets() {
		if c.Lookup(d) == nil {
			return fmt.Errorf("dataset %s is not in the catalog", d)
		}
	}
	return nil
}

func builtinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Dataset: model.ILATM1Bv1(),
			Title:   "IceBridge ATM L1B Elevation and Return Strength",
			Format:  "QFIT binary",
			Frames:  "header or acquisition-date table (ITRF93-ITRF2008)",
		},
		{
			Dataset: model.ILATM1Bv2(),
			Title:   "IceBridge ATM L1B Elevation and Return Strength V2",
			Format:  "HDF5",
			Frames:  "ancillary_data/reference_frame",
		},
		{
			Dataset: model.BLATM1Bv1(),
			Title:   "Pre-IceBridge ATM L1B Elevation and Return Strength",
			Format:  "QFIT binary",
			Frames:  "header or acquisition-date table (ITRF93-ITRF2005)",
		},
		{
			Dataset: model.ILVIS2v1(),
			Title:   "IceBridge LVIS L2 Geolocated Surface Elevation Product",
			Format:  "whitespace text (LVIS v1.0.4)",
			Frames:  "ITRF2000",
		},
		{
			Dataset: model.ILVIS2v2(),
			Title:   "IceBridge LVIS L2 Geolocated Surface Elevation Product V2",
			Format:  "whitespace text (LVIS v2.0.2b)",
			Frames:  "ITRF2000",
		},
		{
			Dataset: model.GLAH06(),
			Title:   "GLAS/ICESat L1B Global Elevation Data",
			Format:  "HDF5",
			Frames:  "ITRF2000",
		},
	}
}
