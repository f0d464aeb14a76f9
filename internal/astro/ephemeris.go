package astro

import (
	"time"
)

// SampleStep is the spacing of locally computed ephemeris samples.
const SampleStep = time.Hour

// HorizontalSample is one altitude/azimuth measurement.
type HorizontalSample struct {
	Time   time.Time `json:"t"`
	AltDeg float64   `json:"alt"`
	AzDeg  float64   `json:"az"`
}

// HorizonEvent is a rise or set: the first sample on the new side of the horizon.
type HorizonEvent struct {
	Time  time.Time `json:"time"`
	AzDeg float64   `json:"az"`
}

// TransitEvent is the highest sampled point of the night.
type TransitEvent struct {
	Time   time.Time `json:"time"`
	AzDeg  float64   `json:"az"`
	AltDeg float64   `json:"alt"`
}

// Position is an interpolated altitude/azimuth.
type Position struct {
	AltDeg float64 `json:"alt"`
	AzDeg  float64 `json:"az"`
}

// LunarData carries the Moon-only columns of a remote ephemeris.
// ElongationDeg is in [0, 360): below 180 the Moon is east of the Sun (waxing).
type LunarData struct {
	IlluminationPct float64 `json:"illumination_pct"`
	ElongationDeg   float64 `json:"elongation_deg"`
}

// Absence explains why a rise or set event is missing.
type Absence int

const (
	AbsenceNone       Absence = iota // event present, or nothing computed
	AbsenceAlreadyUp                 // no rise: above the horizon when the window opens
	AbsenceStillUp                   // no set: above the horizon when the window closes
	AbsenceNeverRises                // never above the horizon during the window
)

// String returns the absence reason.
func (a Absence) String() string {
	switch a {
	case AbsenceNone:
		return ""
	case AbsenceAlreadyUp:
		return "already-up"
	case AbsenceStillUp:
		return "still-up"
	case AbsenceNeverRises:
		return "never-rises"
	default:
		return "unknown"
	}
}

// EphemerisResult is the common output of every ephemeris source.
//
// Nil events are meaningful: a nil Rise with RiseAbsence == AbsenceAlreadyUp
// means the object was up before the window opened, which is different from
// AbsenceNeverRises and from an empty result (nothing could be computed).
type EphemerisResult struct {
	Rise        *HorizonEvent `json:"rise,omitempty"`
	RiseAbsence Absence       `json:"rise_absence,omitempty"`
	Set         *HorizonEvent `json:"set,omitempty"`
	SetAbsence  Absence       `json:"set_absence,omitempty"`
	Transit     *TransitEvent `json:"transit,omitempty"`
	Current     *Position     `json:"current,omitempty"`
	Lunar       *LunarData    `json:"lunar,omitempty"`

	AltitudeAtStart *float64 `json:"altitude_at_start,omitempty"`

	// Track holds the samples the result was derived from.
	Track []HorizontalSample `json:"track,omitempty"`
}

// IsEmpty reports whether no data at all backs the result.
func (r EphemerisResult) IsEmpty() bool {
	return len(r.Track) == 0 && r.Rise == nil && r.Set == nil &&
		r.Transit == nil && r.Current == nil
}

// At returns a copy of r with Current re-derived for now from the track.
// Results without a track are returned unchanged.
func (r EphemerisResult) At(now time.Time) EphemerisResult {
	if pos, ok := InterpolatePosition(r.Track, now); ok {
		r.Current = &pos
	}
	return r
}

// SampleTrack computes altitude/azimuth for a fixed RA/Dec every step over
// [start, end] inclusive.
func SampleTrack(raHours, decDeg float64, obs Observer, start, end time.Time, step time.Duration) []HorizontalSample {
	if step <= 0 || end.Before(start) {
		return nil
	}
	n := int(end.Sub(start)/step) + 1
	track := make([]HorizontalSample, 0, n+1)
	for t := start; !t.After(end); t = t.Add(step) {
		alt, az := AltAz(raHours, decDeg, obs, t)
		track = append(track, HorizontalSample{Time: t, AltDeg: alt, AzDeg: az})
	}
	return track
}

// CalculateEphemeris samples a fixed-coordinate object hourly across the
// window and derives its rise, transit, set and position at now.
func CalculateEphemeris(raHours, decDeg float64, obs Observer, w Window, now time.Time) EphemerisResult {
	track := SampleTrack(raHours, decDeg, obs, w.Start, w.End, SampleStep)
	return DeriveEphemeris(track, now)
}

// DeriveEphemeris turns a chronological altitude/azimuth track into an
// EphemerisResult. Remote tables and local calculations share it.
//
// Rise is the first sample whose altitude is non-negative after a negative
// one; Set is the first negative sample after a non-negative one. There is
// no sub-sample refinement. Transit is reported only when the highest sample
// is above the horizon.
func DeriveEphemeris(track []HorizontalSample, now time.Time) EphemerisResult {
	var res EphemerisResult
	if len(track) == 0 {
		return res
	}
	res.Track = track

	startAlt := track[0].AltDeg
	res.AltitudeAtStart = &startAlt

	maxIdx := 0
	everUp := track[0].AltDeg >= 0
	for i := 1; i < len(track); i++ {
		prev, curr := track[i-1], track[i]
		if curr.AltDeg > track[maxIdx].AltDeg {
			maxIdx = i
		}
		if curr.AltDeg >= 0 {
			everUp = true
		}

		if res.Rise == nil && prev.AltDeg < 0 && curr.AltDeg >= 0 {
			res.Rise = &HorizonEvent{Time: curr.Time, AzDeg: curr.AzDeg}
		}
		if res.Set == nil && prev.AltDeg >= 0 && curr.AltDeg < 0 {
			res.Set = &HorizonEvent{Time: curr.Time, AzDeg: curr.AzDeg}
		}
	}

	if peak := track[maxIdx]; peak.AltDeg > 0 {
		res.Transit = &TransitEvent{Time: peak.Time, AzDeg: peak.AzDeg, AltDeg: peak.AltDeg}
	}

	switch {
	case !everUp:
		res.RiseAbsence = AbsenceNeverRises
		res.SetAbsence = AbsenceNeverRises
	default:
		if res.Rise == nil && track[0].AltDeg >= 0 {
			res.RiseAbsence = AbsenceAlreadyUp
		}
		if res.Set == nil && track[len(track)-1].AltDeg >= 0 {
			res.SetAbsence = AbsenceStillUp
		}
	}

	if pos, ok := InterpolatePosition(track, now); ok {
		res.Current = &pos
	}
	return res
}

// InterpolatePosition estimates the position at t from the bracketing
// samples. Instants outside the track clamp to the nearest endpoint.
func InterpolatePosition(track []HorizontalSample, t time.Time) (Position, bool) {
	if len(track) == 0 {
		return Position{}, false
	}
	first, last := track[0], track[len(track)-1]
	if !t.After(first.Time) {
		return Position{AltDeg: first.AltDeg, AzDeg: first.AzDeg}, true
	}
	if !t.Before(last.Time) {
		return Position{AltDeg: last.AltDeg, AzDeg: last.AzDeg}, true
	}

	for i := 1; i < len(track); i++ {
		a, b := track[i-1], track[i]
		if t.After(b.Time) {
			continue
		}
		span := b.Time.Sub(a.Time)
		if span <= 0 {
			return Position{AltDeg: b.AltDeg, AzDeg: b.AzDeg}, true
		}
		frac := float64(t.Sub(a.Time)) / float64(span)
		return Position{
			AltDeg: a.AltDeg + (b.AltDeg-a.AltDeg)*frac,
			AzDeg:  InterpolateAzimuth(a.AzDeg, b.AzDeg, frac),
		}, true
	}
	return Position{AltDeg: last.AltDeg, AzDeg: last.AzDeg}, true
}

// InterpolateAzimuth interpolates between two azimuths along the shorter
// arc, so 350° -> 10° passes through 0° rather than 180°.
func InterpolateAzimuth(from, to, frac float64) float64 {
	delta := to - from
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return normalizeAngle360(from + delta*frac)
}
