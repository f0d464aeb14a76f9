package astro

import (
	"math"
	"time"
)

// SunPosition returns the apparent right ascension and declination of the
// Sun in degrees at t, from the low-precision almanac series (good to about
// 0.01°). It is independent of the hour-angle solver in solar.go.
func SunPosition(t time.Time) (raDeg, decDeg float64) {
	c := (JulianDate(t) - 2451545.0) / 36525.0 // centuries since J2000

	meanLon := normalizeAngle360(280.46646 + c*(36000.76983+c*0.0003032))
	anomaly := degToRad(normalizeAngle360(357.52911 + c*(35999.05029-c*0.0001537)))

	center := (1.914602-c*(0.004817+c*0.000014))*math.Sin(anomaly) +
		(0.019993-c*0.000101)*math.Sin(2*anomaly) +
		0.000289*math.Sin(3*anomaly)

	// Aberration and nutation in longitude, then the true obliquity.
	node := degToRad(125.04 - 1934.136*c)
	lambda := degToRad(meanLon + center - 0.00569 - 0.00478*math.Sin(node))
	obliquity := degToRad(23.439291 - c*(0.0130042+c*(0.00000016-c*0.000000504)) +
		0.00256*math.Cos(node))

	sinLambda := math.Sin(lambda)
	raDeg = normalizeAngle360(radToDeg(math.Atan2(math.Cos(obliquity)*sinLambda, math.Cos(lambda))))
	decDeg = radToDeg(math.Asin(math.Sin(obliquity) * sinLambda))
	return raDeg, decDeg
}

// SunAltitude returns the geometric altitude of the Sun's center in degrees
// as seen by obs at t. No refraction is applied.
func SunAltitude(obs Observer, t time.Time) float64 {
	ra, dec := SunPosition(t)
	alt, _ := AltAz(ra/15, dec, obs, t)
	return alt
}

// normalizeAngle360 folds a into [0, 360).
func normalizeAngle360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}
