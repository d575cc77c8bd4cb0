package reader

import "time"

// leapStep records the cumulative GPS-UTC offset that took effect at a
// given UTC instant.
type leapStep struct {
	at      time.Time
	seconds int
}

// gpsUTCOffsets is the history of GPS-UTC leap second offsets since the GPS
// epoch (1980-01-06, when the two scales coincided). The last announced leap
// second took effect 2017-01-01; IERS has scheduled none since.
var gpsUTCOffsets = []leapStep{
	{date(1981, time.July, 1), 1},
	{date(1982, time.July, 1), 2},
	{date(1983, time.July, 1), 3},
	{date(1985, time.July, 1), 4},
	{date(1988, time.January, 1), 5},
	{date(1990, time.January, 1), 6},
	{date(1991, time.January, 1), 7},
	{date(1992, time.July, 1), 8},
	{date(1993, time.July, 1), 9},
	{date(1994, time.July, 1), 10},
	{date(1996, time.January, 1), 11},
	{date(1997, time.July, 1), 12},
	{date(1999, time.January, 1), 13},
	{date(2006, time.January, 1), 14},
	{date(2009, time.January, 1), 15},
	{date(2012, time.July, 1), 16},
	{date(2015, time.July, 1), 17},
	{date(2017, time.January, 1), 18},
}

// leapSeconds returns the GPS-UTC offset in effect at t. ATM1B GPS
// timestamps are converted to UTC by subtracting this offset.
func leapSeconds(t time.Time) int {
	offset := 0
	for _, step := range gpsUTCOffsets {
		if t.Before(step.at) {
			break
		}
		offset = step.seconds
	}
	return offset
}
