// Package catalog holds the celestial objects tracked across a night and the
// session snapshot that carries their last computed projection.
package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
)

// ObjectID is the stable identifier used to correlate fetch results with
// catalog entries. It is never a display name.
type ObjectID string

// Kind is the broad class of a catalog object; it selects the provider.
type Kind int

const (
	KindDeepSky Kind = iota
	KindPlanet
	KindMoon
	KindSatellite
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDeepSky:
		return "deep-sky"
	case KindPlanet:
		return "planet"
	case KindMoon:
		return "moon"
	case KindSatellite:
		return "satellite"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "deep-sky":
		*k = KindDeepSky
	case "planet":
		*k = KindPlanet
	case "moon":
		*k = KindMoon
	case "satellite":
		*k = KindSatellite
	default:
		return fmt.Errorf("unknown object kind %q", b)
	}
	return nil
}

// Difficulty is the minimum equipment needed to see an object.
type Difficulty int

const (
	NakedEye Difficulty = iota
	Binoculars
	Telescope
)

// String returns the difficulty name.
func (d Difficulty) String() string {
	switch d {
	case NakedEye:
		return "naked-eye"
	case Binoculars:
		return "binoculars"
	case Telescope:
		return "telescope"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(b []byte) error {
	switch string(b) {
	case "naked-eye":
		*d = NakedEye
	case "binoculars":
		*d = Binoculars
	case "telescope":
		*d = Telescope
	default:
		return fmt.Errorf("unknown difficulty %q", b)
	}
	return nil
}

// Source selects where an object's ephemeris comes from. Exactly one of the
// selectors is meaningful for a given Kind: Command for planets and the Moon,
// RAHours/DecDeg for deep-sky objects, NORAD for satellites.
type Source struct {
	Command string  `json:"command,omitempty"` // Horizons COMMAND token
	RAHours float64 `json:"ra_hours,omitempty"`
	DecDeg  float64 `json:"dec_deg,omitempty"`
	NORAD   int     `json:"norad,omitempty"`
}

// Status is the visibility state of an object at an instant.
type Status int

const (
	StatusBelowHorizon Status = iota
	StatusVisible
	StatusNotYetRisen
	StatusAlreadySet
	StatusTooCloseToSun // reserved for a solar elongation cutoff
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusBelowHorizon:
		return "below-horizon"
	case StatusVisible:
		return "visible"
	case StatusNotYetRisen:
		return "not-yet-risen"
	case StatusAlreadySet:
		return "already-set"
	case StatusTooCloseToSun:
		return "too-close-to-sun"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for _, c := range []Status{StatusBelowHorizon, StatusVisible, StatusNotYetRisen, StatusAlreadySet, StatusTooCloseToSun} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// MoonPhase is the named lunar phase derived from illumination and elongation.
type MoonPhase int

const (
	PhaseNone MoonPhase = iota
	PhaseNew
	PhaseWaxingCrescent
	PhaseFirstQuarter
	PhaseWaxingGibbous
	PhaseFull
	PhaseWaningGibbous
	PhaseLastQuarter
	PhaseWaningCrescent
)

var phaseNames = map[MoonPhase]string{
	PhaseNone:           "",
	PhaseNew:            "new",
	PhaseWaxingCrescent: "waxing-crescent",
	PhaseFirstQuarter:   "first-quarter",
	PhaseWaxingGibbous:  "waxing-gibbous",
	PhaseFull:           "full",
	PhaseWaningGibbous:  "waning-gibbous",
	PhaseLastQuarter:    "last-quarter",
	PhaseWaningCrescent: "waning-crescent",
}

// String returns the phase name, or "" for PhaseNone.
func (p MoonPhase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p MoonPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *MoonPhase) UnmarshalText(b []byte) error {
	for k, n := range phaseNames {
		if n == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown moon phase %q", b)
}

// Object is a catalog entry together with its last computed projection.
// The static fields are seeded at start; the projection is overwritten once
// per night computation and retained when a refresh fails.
type Object struct {
	ID         ObjectID   `json:"id"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Source     Source     `json:"source"`
	Difficulty Difficulty `json:"difficulty"`

	Ephemeris *astro.EphemerisResult `json:"ephemeris,omitempty"`
	Status    Status                 `json:"status"`
	Phase     MoonPhase              `json:"phase,omitempty"`
	Fetched   bool                   `json:"fetched"` // ever had a successful fetch
	Stale     bool                   `json:"stale"`   // projection is from an earlier cycle
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}

// Clone returns a copy of o that shares no mutable state with it.
func (o Object) Clone() Object {
	if o.Ephemeris != nil {
		e := *o.Ephemeris
		if e.Track != nil {
			e.Track = append([]astro.HorizontalSample(nil), e.Track...)
		}
		o.Ephemeris = &e
	}
	return o
}

// ResetProjection clears everything computed for o, keeping the static fields.
func (o Object) ResetProjection() Object {
	return Object{
		ID:         o.ID,
		Name:       o.Name,
		Kind:       o.Kind,
		Source:     o.Source,
		Difficulty: o.Difficulty,
	}
}

// Session is the snapshot for one (date, location): the night window and
// every object with its ephemeris filled in.
type Session struct {
	Date       time.Time       `json:"date"`
	Observer   astro.Observer  `json:"observer"`
	Night      astro.NightPlan `json:"night"`
	Objects    []Object        `json:"objects"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Key returns the cache key of the session.
func (s Session) Key() SessionKey {
	return KeyFor(s.Date, s.Observer)
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	objs := make([]Object, len(s.Objects))
	for i, o := range s.Objects {
		objs[i] = o.Clone()
	}
	s.Objects = objs
	return s
}

// SessionKey identifies a cached session. Coordinates are rounded to two
// decimals (roughly 1 km) so small GPS jitter hits the same entry.
type SessionKey struct {
	Date string  `json:"date"` // 2006-01-02
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// KeyFor builds the session key for date at obs.
func KeyFor(date time.Time, obs astro.Observer) SessionKey {
	return SessionKey{
		Date: date.Format("2006-01-02"),
		Lat:  roundTo(obs.LatDeg, 2),
		Lon:  roundTo(obs.LonDeg, 2),
	}
}

// String formats the key as "2006-01-02@lat,lon".
func (k SessionKey) String() string {
	return fmt.Sprintf("%s@%.2f,%.2f", k.Date, k.Lat, k.Lon)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // no negative zero in keys
	}
	return r
}
