package astro

import (
	"math"
	"time"
)

// Solar elevation thresholds in degrees.
const (
	CivilTwilightElevation = -6.0
	HorizonElevation       = 0.0
)

// PolarCondition classifies the Sun's daily behaviour at a date and place.
type PolarCondition int

const (
	PolarNormal PolarCondition = iota // Sun crosses the twilight threshold
	PolarNight                        // Sun stays below the threshold all day
	MidnightSun                       // Sun stays above the threshold all day
)

// String returns the condition name.
func (c PolarCondition) String() string {
	switch c {
	case PolarNormal:
		return "normal"
	case PolarNight:
		return "polar-night"
	case MidnightSun:
		return "midnight-sun"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c PolarCondition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *PolarCondition) UnmarshalText(b []byte) error {
	switch string(b) {
	case "polar-night":
		*c = PolarNight
	case "midnight-sun":
		*c = MidnightSun
	default:
		*c = PolarNormal
	}
	return nil
}

// Window is one observing night: Start is dusk, End is dawn of the next day.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the window is ordered.
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// WindowSource records which rule of the fallback cascade produced a window.
type WindowSource int

const (
	WindowTwilight WindowSource = iota // civil dusk to civil dawn
	WindowSunset                       // sunset to sunrise (twilight never ends)
	WindowFullDay                      // midnight to midnight (no sunset at all)
)

// String returns the source name.
func (s WindowSource) String() string {
	switch s {
	case WindowTwilight:
		return "civil-twilight"
	case WindowSunset:
		return "sunset"
	case WindowFullDay:
		return "full-day"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s WindowSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *WindowSource) UnmarshalText(b []byte) error {
	switch string(b) {
	case "sunset":
		*s = WindowSunset
	case "full-day":
		*s = WindowFullDay
	default:
		*s = WindowTwilight
	}
	return nil
}

// NightPlan is the outcome of the window fallback cascade for one date.
type NightPlan struct {
	Date      time.Time      `json:"date"`
	Window    Window         `json:"window"`
	Condition PolarCondition `json:"condition"`
	Source    WindowSource   `json:"source"`
}

// ObservationWindow returns the civil-twilight night starting on date: dusk
// on date and dawn on the following day, in date's time zone.
// ok is false when the Sun does not cross -6° on one of the two days; that
// is the expected outcome at high latitudes, not an error.
func ObservationWindow(date time.Time, obs Observer) (Window, bool) {
	return WindowAtElevation(date, obs, CivilTwilightElevation)
}

// WindowAtElevation is ObservationWindow for an arbitrary solar elevation.
func WindowAtElevation(date time.Time, obs Observer, elevDeg float64) (Window, bool) {
	set, ok := solarEvent(date, obs, elevDeg, true)
	if !ok {
		return Window{}, false
	}
	rise, ok := solarEvent(date.AddDate(0, 0, 1), obs, elevDeg, false)
	if !ok {
		return Window{}, false
	}
	w := Window{Start: set, End: rise}
	if !w.Valid() {
		return Window{}, false
	}
	return w, true
}

// DetectPolarCondition classifies date at obs using the -6° hour-angle test.
func DetectPolarCondition(date time.Time, obs Observer) PolarCondition {
	cosH, _ := hourAngleCos(date, obs.LatDeg, CivilTwilightElevation)
	switch {
	case cosH > 1:
		return PolarNight
	case cosH < -1:
		return MidnightSun
	default:
		return PolarNormal
	}
}

// PlanNight resolves the observing window for date, falling back from civil
// twilight to sunset/sunrise and finally to a midnight-to-midnight day so the
// caller always gets a usable window.
func PlanNight(date time.Time, obs Observer) NightPlan {
	plan := NightPlan{
		Date:      startOfDay(date),
		Condition: DetectPolarCondition(date, obs),
	}

	if w, ok := ObservationWindow(date, obs); ok {
		plan.Window = w
		plan.Source = WindowTwilight
		return plan
	}

	if w, ok := WindowAtElevation(date, obs, HorizonElevation); ok {
		plan.Window = w
		plan.Source = WindowSunset
		return plan
	}

	plan.Window = Window{Start: startOfDay(date), End: Midnight(date)}
	plan.Source = WindowFullDay
	return plan
}

// Midnight returns local midnight at the end of date, i.e. 00:00 of the
// following calendar day in date's time zone.
func Midnight(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, date.Location())
}

func startOfDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

// solarEvent returns the instant on date's calendar day when the Sun passes
// elevDeg, descending when setting is true and ascending otherwise.
func solarEvent(date time.Time, obs Observer, elevDeg float64, setting bool) (time.Time, bool) {
	cosH, eqTime := hourAngleCos(date, obs.LatDeg, elevDeg)
	if cosH > 1 || cosH < -1 || math.IsNaN(cosH) {
		return time.Time{}, false
	}
	h := radToDeg(math.Acos(cosH))
	if !setting {
		h = -h
	}

	// NOAA: event (minutes after 00:00 UTC) = 720 - 4*(longitude - H) - eqtime
	minutes := 720 - 4*(obs.LonDeg-h) - eqTime

	y, m, d := date.Date()
	utcMidnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	event := utcMidnight.Add(time.Duration(minutes * float64(time.Minute)))
	return event.In(date.Location()).Truncate(time.Second), true
}

// hourAngleCos evaluates cos(H) for the Sun at elevDeg on date's calendar day
// and also returns the equation of time in minutes.
//
// Declination and equation of time use the NOAA (Spencer 1971) Fourier
// series in the fractional year.
func hourAngleCos(date time.Time, latDeg, elevDeg float64) (cosH, eqTime float64) {
	// cos(lat) vanishes at the poles; keep the formula finite there.
	if latDeg > 89.9999 {
		latDeg = 89.9999
	} else if latDeg < -89.9999 {
		latDeg = -89.9999
	}

	y, _, _ := date.Date()
	daysInYear := 365.0
	if isLeapYear(y) {
		daysInYear = 366
	}
	gamma := 2 * math.Pi / daysInYear * float64(date.YearDay()-1)

	eqTime = 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) -
		0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) -
		0.040849*math.Sin(2*gamma))

	decl := 0.006918 -
		0.399912*math.Cos(gamma) +
		0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) +
		0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) +
		0.00148*math.Sin(3*gamma)

	lat := degToRad(latDeg)
	zenith := degToRad(90 - elevDeg)

	cosH = (math.Cos(zenith) - math.Sin(lat)*math.Sin(decl)) / (math.Cos(lat) * math.Cos(decl))
	return cosH, eqTime
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
