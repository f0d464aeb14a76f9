package astro

import (
	"math"
	"testing"
	"time"
)

// raDelta is the shortest angular distance between two right ascensions.
func raDelta(a, b float64) float64 {
	d := math.Abs(normalizeAngle360(a) - normalizeAngle360(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

func TestSunPosition_Seasons(t *testing.T) {
	tests := []struct {
		name   string
		t      time.Time
		ra     float64
		dec    float64
		raTol  float64
		decTol float64
	}{
		{"march equinox", time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC), 0, 0, 0.5, 0.2},
		{"june solstice", time.Date(2024, 6, 20, 20, 51, 0, 0, time.UTC), 90, 23.44, 0.5, 0.05},
		{"september equinox", time.Date(2024, 9, 22, 12, 44, 0, 0, time.UTC), 180, 0, 0.5, 0.2},
		{"december solstice", time.Date(2024, 12, 21, 9, 20, 0, 0, time.UTC), 270, -23.44, 0.5, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra, dec := SunPosition(tt.t)
			if raDelta(ra, tt.ra) > tt.raTol {
				t.Errorf("RA = %.3f°, want %.1f° ±%.1f", ra, tt.ra, tt.raTol)
			}
			if math.Abs(dec-tt.dec) > tt.decTol {
				t.Errorf("Dec = %.3f°, want %.2f° ±%.2f", dec, tt.dec, tt.decTol)
			}
			if ra < 0 || ra >= 360 {
				t.Errorf("RA = %v outside [0, 360)", ra)
			}
		})
	}
}

func TestSunAltitude(t *testing.T) {
	greenwich := Observer{LatDeg: 51.4779, LonDeg: 0}

	noon := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	if alt := SunAltitude(greenwich, noon); math.Abs(alt-62) > 1 {
		t.Errorf("SunAltitude(solstice noon) = %.2f°, want ~62°", alt)
	}

	midnight := time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC)
	if alt := SunAltitude(greenwich, midnight); alt > -50 {
		t.Errorf("SunAltitude(winter midnight) = %.2f°, want below -50°", alt)
	}
}

// The night window's edges sit where the Sun crosses civil twilight.
func TestSunAltitude_AtNightEdges(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
	}
	for _, name := range []string{"london", "sydney", "quito"} {
		obs := testLocations[name]
		for _, date := range dates {
			w, ok := ObservationWindow(date, obs)
			if !ok {
				t.Fatalf("%s %s: no window", name, date.Format("2006-01-02"))
			}
			for label, edge := range map[string]time.Time{"dusk": w.Start, "dawn": w.End} {
				if alt := SunAltitude(obs, edge); math.Abs(alt-CivilTwilightElevation) > 1 {
					t.Errorf("%s %s %s: sun altitude %.2f°, want ~%.0f°",
						name, date.Format("2006-01-02"), label, alt, CivilTwilightElevation)
				}
			}
			mid := w.Start.Add(w.Duration() / 2)
			if alt := SunAltitude(obs, mid); alt >= CivilTwilightElevation {
				t.Errorf("%s %s: sun at %.2f° mid-window, want below twilight", name, date.Format("2006-01-02"), alt)
			}
		}
	}
}

// Polar classification agrees with where the Sun actually is over the day.
func TestSunAltitude_PolarConditions(t *testing.T) {
	obs := testLocations["longyearbyen"]
	tests := []struct {
		date time.Time
		want PolarCondition
	}{
		{time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), PolarNight},
		{time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), MidnightSun},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := DetectPolarCondition(tt.date, obs); got != tt.want {
				t.Fatalf("DetectPolarCondition = %v, want %v", got, tt.want)
			}
			for h := 0; h < 24; h++ {
				alt := SunAltitude(obs, tt.date.Add(time.Duration(h)*time.Hour))
				if tt.want == PolarNight && alt >= CivilTwilightElevation {
					t.Errorf("hour %d: sun at %.2f° during polar night", h, alt)
				}
				if tt.want == MidnightSun && alt <= CivilTwilightElevation {
					t.Errorf("hour %d: sun at %.2f° during midnight sun", h, alt)
				}
			}
		})
	}
}
