// Package itrf transforms point coordinates between realizations of the
// International Terrestrial Reference Frame.
//
// Transformations are 14-parameter Helmert transforms (translation, scale,
// rotation, and their linear rates about a reference epoch) using the
// published ITRF2014 parameter set, composed through ITRF2014 when neither
// side of a conversion is ITRF2014 itself. An optional plate-motion step
// propagates coordinates between epochs using the ITRF2014 plate motion
// model.
package itrf

import (
	"fmt"
	"regexp"
	"strings"
)

// Frame names a specific ITRF realization, e.g. "ITRF2008". Realizations
// before 2000 use two-digit years ("ITRF93"), matching the IGN naming.
type Frame string

const (
	ITRF93   Frame = "ITRF93"
	ITRF94   Frame = "ITRF94"
	ITRF96   Frame = "ITRF96"
	ITRF97   Frame = "ITRF97"
	ITRF2000 Frame = "ITRF2000"
	ITRF2005 Frame = "ITRF2005"
	ITRF2008 Frame = "ITRF2008"
	ITRF2014 Frame = "ITRF2014"
	ITRF2020 Frame = "ITRF2020"
)

// SupportedFrames lists the realizations the transform tables cover, oldest
// first.
func SupportedFrames() []Frame {
	return []Frame{
		ITRF93, ITRF94, ITRF96, ITRF97,
		ITRF2000, ITRF2005, ITRF2008, ITRF2014, ITRF2020,
	}
}

var framePattern = regexp.MustCompile(`^ITRF\d{2}(\d{2})?$`)

// Check reports whether s has the form of an ITRF frame string
// ("ITRF" followed by a two- or four-digit year), ignoring case and
// surrounding whitespace. It does not require the frame to be in the
// supported transform tables.
func Check(s string) bool {
	return framePattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Supported reports whether f appears in the transform tables.
func Supported(f Frame) bool {
	_, ok := toITRF2014[f]
	if ok || f == ITRF2014 {
		return true
	}
	_, ok = toITRF2020[f]
	return ok
}

// Normalize maps common ITRF spelling variants onto the canonical frame
// names used by the transform tables: case folding, two-digit years for
// 19xx realizations, four-digit years for 2000 onward. Unrecognized strings
// are returned upper-cased with an error.
func Normalize(s string) (Frame, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if !Check(up) {
		return Frame(up), fmt.Errorf("not an ITRF frame string: %q", s)
	}

	digits := strings.TrimPrefix(up, "ITRF")
	switch len(digits) {
	case 2:
		// Two-digit years >= 88 are 19xx realizations and already canonical.
		// 00/05/08/14/20 abbreviate the 20xx realizations.
		if digits >= "88" {
			return Frame(up), nil
		}
		return Frame("ITRF20" + digits), nil
	case 4:
		if strings.HasPrefix(digits, "19") {
			return Frame("ITRF" + digits[2:]), nil
		}
		return Frame(up), nil
	}
	return Frame(up), fmt.Errorf("not an ITRF frame string: %q", s)
}
