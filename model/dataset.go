package model

import "fmt"

// ShortName identifies an altimetry dataset in the Earthdata catalog.
type ShortName string

const (
	ShortNameILATM1B ShortName = "ILATM1B" // IceBridge ATM L1B (2009+)
	ShortNameBLATM1B ShortName = "BLATM1B" // pre-IceBridge ATM L1B (1993-2008)
	ShortNameILVIS2  ShortName = "ILVIS2"  // IceBridge LVIS L2 geolocated surface elevation
	ShortNameGLAH06  ShortName = "GLAH06"  // ICESat/GLAS L1B global elevation
)

// Dataset describes a single searchable/downloadable dataset version.
type Dataset struct {
	ShortName ShortName
	Version   string
}

// SubdirName returns the output-directory name used for downloaded granules
// of this dataset, e.g. "ILATM1B_2".
func (d Dataset) SubdirName() string {
	return fmt.Sprintf("%s_%s", d.ShortName, d.Version)
}

func (d Dataset) String() string {
	return fmt.Sprintf("%sv%s", d.ShortName, d.Version)
}

// Validate checks that the dataset names a supported short name / version
// combination.
func (d Dataset) Validate() error {
	versions, ok := supportedVersions[d.ShortName]
	if !ok {
		return fmt.Errorf("unsupported dataset short name %q", d.ShortName)
	}
	for _, v := range versions {
		if v == d.Version {
			return nil
		}
	}
	return fmt.Errorf("unsupported version %q for dataset %s", d.Version, d.ShortName)
}

// Note: some dataset versions are zero padded. NSIDC documentation refers to
// GLAH06 "version 34", but CMR only recognizes "034".
var supportedVersions = map[ShortName][]string{
	ShortNameILATM1B: {"1", "2"},
	ShortNameBLATM1B: {"1"},
	ShortNameILVIS2:  {"1", "2"},
	ShortNameGLAH06:  {"034"},
}

// Convenience constructors for the supported dataset versions.

func ILATM1Bv1() Dataset { return Dataset{ShortName: ShortNameILATM1B, Version: "1"} }
func ILATM1Bv2() Dataset { return Dataset{ShortName: ShortNameILATM1B, Version: "2"} }
func BLATM1Bv1() Dataset { return Dataset{ShortName: ShortNameBLATM1B, Version: "1"} }
func ILVIS2v1() Dataset  { return Dataset{ShortName: ShortNameILVIS2, Version: "1"} }
func ILVIS2v2() Dataset  { return Dataset{ShortName: ShortNameILVIS2, Version: "2"} }
func GLAH06() Dataset    { return Dataset{ShortName: ShortNameGLAH06, Version: "034"} }

// AllDatasets returns every dataset version the library can read.
func AllDatasets() []Dataset {
	return []Dataset{
		ILATM1Bv1(),
		ILATM1Bv2(),
		BLATM1Bv1(),
		ILVIS2v1(),
		ILVIS2v2(),
		GLAH06(),
	}
}
