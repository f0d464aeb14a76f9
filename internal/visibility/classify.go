// Package visibility turns ephemeris results into per-object visibility
// status and merges successive fetch cycles into one catalog.
package visibility

import (
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
)

// Finding marks a classification that was reached from suspicious data.
type Finding int

const (
	FindingNone Finding = iota
	// FindingRisePassedButBelow: the rise time has passed but the current
	// altitude is not positive. The result may hold a rise from an earlier
	// sampling, so callers should log it rather than trust it.
	FindingRisePassedButBelow
)

// String returns the finding name.
func (f Finding) String() string {
	switch f {
	case FindingNone:
		return ""
	case FindingRisePassedButBelow:
		return "rise-passed-but-below"
	default:
		return "unknown"
	}
}

// Classify evaluates the visibility of one object at now. The rules are
// applied in priority order; the first match wins. A nil Current counts as
// not above the horizon.
func Classify(res *astro.EphemerisResult, now time.Time) (catalog.Status, Finding) {
	if res == nil {
		return catalog.StatusBelowHorizon, FindingNone
	}

	above := res.Current != nil && res.Current.AltDeg > 0

	if above {
		if res.Set == nil || now.Before(res.Set.Time) {
			return catalog.StatusVisible, FindingNone
		}
		return catalog.StatusAlreadySet, FindingNone
	}

	if res.Rise != nil {
		if now.Before(res.Rise.Time) {
			return catalog.StatusNotYetRisen, FindingNone
		}
		if res.Set != nil && !now.Before(res.Set.Time) {
			return catalog.StatusAlreadySet, FindingNone
		}
		return catalog.StatusBelowHorizon, FindingRisePassedButBelow
	}

	if res.Transit != nil && res.Transit.AltDeg > 0 {
		return catalog.StatusVisible, FindingNone
	}
	return catalog.StatusBelowHorizon, FindingNone
}

// Illumination bands, in percent.
const (
	newBelow     = 3.0
	quarterFrom  = 47.0
	quarterUpTo  = 53.0
	gibbousUpTo  = 97.0
	waxingBefore = 180.0 // elongation, degrees
)

// PhaseFor names the lunar phase from illumination and elongation.
// It returns PhaseNone when no lunar data is present.
func PhaseFor(lunar *astro.LunarData) catalog.MoonPhase {
	if lunar == nil {
		return catalog.PhaseNone
	}
	illum := lunar.IlluminationPct
	waxing := lunar.ElongationDeg < waxingBefore

	switch {
	case illum < newBelow:
		return catalog.PhaseNew
	case illum < quarterFrom:
		if waxing {
			return catalog.PhaseWaxingCrescent
		}
		return catalog.PhaseWaningCrescent
	case illum <= quarterUpTo:
		if waxing {
			return catalog.PhaseFirstQuarter
		}
		return catalog.PhaseLastQuarter
	case illum <= gibbousUpTo:
		if waxing {
			return catalog.PhaseWaxingGibbous
		}
		return catalog.PhaseWaningGibbous
	default:
		return catalog.PhaseFull
	}
}
