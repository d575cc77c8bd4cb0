package reader

import (
	"fmt"
	"sort"
	"time"
)

// granuleITRFRange maps a closed date interval of ATM1B acquisitions to the
// reference frame the instrument team published positions in.
type granuleITRFRange struct {
	start, end time.Time
	itrf       string
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// atm1bGranuleITRFs is the fallback frame lookup for QFIT files whose header
// does not name a frame. The ranges were established by reading the frame
// out of the full ATM1B archive; no formal provenance document exists.
// Entries are sorted by start date and do not overlap.
var atm1bGranuleITRFs = []granuleITRFRange{
	{date(1993, time.June, 23), date(1996, time.June, 5), "ITRF93"},
	{date(1997, time.April, 25), date(1997, time.May, 28), "ITRF94"},
	{date(1998, time.June, 27), date(1999, time.May, 25), "ITRF96"},
	{date(2000, time.May, 12), date(2001, time.May, 27), "ITRF97"},
	{date(2001, time.December, 18), date(2002, time.November, 21), "ITRF2000"},
	{date(2002, time.November, 22), date(2002, time.November, 22), "ITRF97"},
	{date(2002, time.November, 23), date(2002, time.December, 13), "ITRF2000"},
	{date(2002, time.December, 14), date(2002, time.December, 14), "ITRF97"},
	{date(2002, time.December, 15), date(2007, time.May, 11), "ITRF2000"},
	{date(2007, time.September, 10), date(2011, time.May, 16), "ITRF2005"},
	{date(2011, time.October, 12), date(2018, time.May, 1), "ITRF2008"},
}

// itrfFromDate returns the fallback reference frame for an ATM1B granule
// acquired on the given date. Dates outside every known range are an error:
// guessing a frame would silently corrupt downstream transforms.
func itrfFromDate(d time.Time) (string, error) {
	d = date(d.Year(), d.Month(), d.Day())

	// First range whose end is not before d.
	i := sort.Search(len(atm1bGranuleITRFs), func(i int) bool {
		return !atm1bGranuleITRFs[i].end.Before(d)
	})
	if i == len(atm1bGranuleITRFs) || d.Before(atm1bGranuleITRFs[i].start) {
		return "", fmt.Errorf("no known ATM1B reference frame for date %s", d.Format("2006-01-02"))
	}
	return atm1bGranuleITRFs[i].itrf, nil
}
