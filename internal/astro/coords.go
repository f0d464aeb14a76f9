// Package astro provides the sky math behind the night planner: observer
// locations, sidereal time, equatorial to horizontal conversion, solar
// geometry and ephemeris derivation from sampled altitude/azimuth tracks.
package astro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Observer represents a ground-based observer location.
// It is an immutable value; build it with NewObserver or ParseObserver so the
// coordinates are known to be valid.
type Observer struct {
	LatDeg    float64 `json:"lat"`            // Latitude in degrees (north positive)
	LonDeg    float64 `json:"lon"`            // Longitude in degrees (east positive)
	AltitudeM float64 `json:"altitude_m"`     // Height above sea level in meters
	Name      string  `json:"name,omitempty"` // Optional display name
}

// Coordinate validation errors.
var (
	ErrInvalidLatitude  = errors.New("latitude must be a real number in [-90, 90]")
	ErrInvalidLongitude = errors.New("longitude must be a real number in [-180, 180]")
)

// NewObserver validates the coordinates and returns an Observer.
func NewObserver(latDeg, lonDeg, altitudeM float64, name string) (Observer, error) {
	if math.IsNaN(latDeg) || math.IsInf(latDeg, 0) || latDeg < -90 || latDeg > 90 {
		return Observer{}, fmt.Errorf("%w: %v", ErrInvalidLatitude, latDeg)
	}
	if math.IsNaN(lonDeg) || math.IsInf(lonDeg, 0) || lonDeg < -180 || lonDeg > 180 {
		return Observer{}, fmt.Errorf("%w: %v", ErrInvalidLongitude, lonDeg)
	}
	if math.IsNaN(altitudeM) || math.IsInf(altitudeM, 0) {
		altitudeM = 0
	}
	return Observer{LatDeg: latDeg, LonDeg: lonDeg, AltitudeM: altitudeM, Name: name}, nil
}

// ParseObserver validates a manually entered latitude/longitude pair.
func ParseObserver(latStr, lonStr string) (Observer, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Observer{}, fmt.Errorf("%w: %q", ErrInvalidLatitude, latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Observer{}, fmt.Errorf("%w: %q", ErrInvalidLongitude, lonStr)
	}
	return NewObserver(lat, lon, 0, "")
}

// String formats the location like "37.7749°N 122.4194°W".
func (o Observer) String() string {
	ns, ew := "N", "E"
	if o.LatDeg < 0 {
		ns = "S"
	}
	if o.LonDeg < 0 {
		ew = "W"
	}
	coords := fmt.Sprintf("%.4f°%s %.4f°%s", math.Abs(o.LatDeg), ns, math.Abs(o.LonDeg), ew)
	if o.Name != "" {
		return o.Name + " (" + coords + ")"
	}
	return coords
}

// AltAz returns altitude and azimuth in degrees for an object at right
// ascension raHours and declination decDeg.
//
// The azimuth formula divides by cos(lat); at exactly ±90° latitude every
// direction is south (or north) and the returned azimuth is meaningless.
// Altitude remains correct there.
func AltAz(raHours, decDeg float64, obs Observer, t time.Time) (altDeg, azDeg float64) {
	lat := degToRad(obs.LatDeg)
	dec := degToRad(decDeg)

	// Hour Angle = LST - RA, normalized to [0, 24) then degrees
	haHours := normalizeHours(LocalSiderealTime(obs.LonDeg, t) - raHours)
	ha := degToRad(haHours * 15)

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clampUnit(sinAlt))

	cosAz := (math.Sin(dec) - math.Sin(lat)*math.Sin(alt)) / (math.Cos(lat) * math.Cos(alt))
	// Clamp cosAz to [-1, 1] to handle floating point errors
	az := math.Acos(clampUnit(cosAz))

	// Adjust azimuth quadrant: if hour angle is positive, azimuth is west of south
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return radToDeg(alt), normalizeAngle360(radToDeg(az))
}

// LocalSiderealTime returns the Local Sidereal Time in hours [0, 24) for an
// observer at lonDeg (east positive) at instant t.
func LocalSiderealTime(lonDeg float64, t time.Time) float64 {
	gmstHours := GreenwichMeanSiderealTime(t) / 15
	return normalizeHours(gmstHours + lonDeg/15)
}

// GreenwichMeanSiderealTime calculates GMST in degrees [0, 360) for a given time.
// Uses the IAU formula based on Julian Date.
func GreenwichMeanSiderealTime(t time.Time) float64 {
	jd := JulianDate(t)

	// Julian centuries since J2000.0
	T := (jd - J2000) / 36525.0

	// GMST in degrees (IAU 1982 formula)
	// GMST = 280.46061837 + 360.98564736629*(JD-2451545) + 0.000387933*T^2 - T^3/38710000
	gmst := 280.46061837 +
		360.98564736629*(jd-J2000) +
		0.000387933*T*T -
		T*T*T/38710000.0

	return normalizeAngle360(gmst)
}

// J2000 is the Julian Date of the J2000.0 epoch (2000-01-01 12:00 TT).
const J2000 = 2451545.0

// JulianDate calculates the Julian Date for a given time.
func JulianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	// Time of day as fraction
	h := float64(t.Hour())
	min := float64(t.Minute())
	sec := float64(t.Second())
	ns := float64(t.Nanosecond())

	dayFrac := (h + min/60 + sec/3600 + ns/3.6e12) / 24.0

	// Adjust for January/February (treat as months 13/14 of previous year)
	if m <= 2 {
		y--
		m += 12
	}

	// Gregorian calendar correction
	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	return math.Floor(365.25*(y+4716)) +
		math.Floor(30.6001*(m+1)) +
		d + dayFrac + B - 1524.5
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

func normalizeHours(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	if h >= 24 {
		h = 0
	}
	return h
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
