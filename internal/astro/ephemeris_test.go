package astro

import (
	"math"
	"testing"
	"time"
)

// Well-known fixed positions (RA hours, Dec degrees)
var testStars = map[string]struct {
	RAHours float64
	DecDeg  float64
}{
	"polaris":     {RAHours: 2.5303, DecDeg: 89.2642},
	"sigma_oct":   {RAHours: 21.1465, DecDeg: -88.9565},
	"vega":        {RAHours: 18.6156, DecDeg: 38.7837},
	"canopus":     {RAHours: 6.3992, DecDeg: -52.6957},
	"orion_m42":   {RAHours: 5.5881, DecDeg: -5.3911},
	"dec_minus90": {RAHours: 0, DecDeg: -89.9},
}

func sanFranciscoNight(t *testing.T, date time.Time) Window {
	t.Helper()
	w, ok := ObservationWindow(date, testLocations["san_francisco"])
	if !ok {
		t.Fatalf("no window for %v", date)
	}
	return w
}

func TestCalculateEphemeris_Circumpolar(t *testing.T) {
	obs := testLocations["san_francisco"]
	w := sanFranciscoNight(t, time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))
	star := testStars["polaris"]

	res := CalculateEphemeris(star.RAHours, star.DecDeg, obs, w, w.Start.Add(3*time.Hour))

	for _, s := range res.Track {
		if s.AltDeg <= 0 {
			t.Errorf("Polaris altitude %.2f° at %v, want > 0", s.AltDeg, s.Time)
		}
	}
	if res.Rise != nil {
		t.Errorf("Rise = %+v, want nil for an object already up", res.Rise)
	}
	if res.RiseAbsence != AbsenceAlreadyUp {
		t.Errorf("RiseAbsence = %v, want already-up", res.RiseAbsence)
	}
	if res.Set != nil || res.SetAbsence != AbsenceStillUp {
		t.Errorf("Set = %+v (%v), want nil/still-up", res.Set, res.SetAbsence)
	}
	if res.Transit == nil || res.Transit.AltDeg <= 0 {
		t.Errorf("Transit = %+v, want positive transit", res.Transit)
	}
	if res.Current == nil || math.Abs(res.Current.AltDeg-obs.LatDeg) > 2 {
		t.Errorf("Current = %+v, want altitude near latitude", res.Current)
	}
	if res.AltitudeAtStart == nil || *res.AltitudeAtStart <= 0 {
		t.Errorf("AltitudeAtStart = %v, want positive", res.AltitudeAtStart)
	}
}

func TestCalculateEphemeris_NeverRises(t *testing.T) {
	obs := testLocations["san_francisco"]
	w := sanFranciscoNight(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))

	for _, name := range []string{"sigma_oct", "dec_minus90"} {
		star := testStars[name]
		res := CalculateEphemeris(star.RAHours, star.DecDeg, obs, w, w.Start)

		if len(res.Track) == 0 {
			t.Fatalf("%s: empty track", name)
		}
		for _, s := range res.Track {
			if s.AltDeg >= 0 {
				t.Errorf("%s altitude %.2f° at %v, want < 0", name, s.AltDeg, s.Time)
			}
		}
		if res.Transit != nil {
			t.Errorf("%s: Transit = %+v, want nil when never above horizon", name, res.Transit)
		}
		if res.Rise != nil || res.Set != nil {
			t.Errorf("%s: Rise/Set = %+v/%+v, want nil", name, res.Rise, res.Set)
		}
		if res.RiseAbsence != AbsenceNeverRises || res.SetAbsence != AbsenceNeverRises {
			t.Errorf("%s: absences = %v/%v, want never-rises", name, res.RiseAbsence, res.SetAbsence)
		}
	}
}

func TestCalculateEphemeris_HourlyInclusiveSampling(t *testing.T) {
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(10 * time.Hour)}
	star := testStars["vega"]

	res := CalculateEphemeris(star.RAHours, star.DecDeg, testLocations["london"], w, start)
	if len(res.Track) != 11 {
		t.Fatalf("len(Track) = %d, want 11 hourly samples", len(res.Track))
	}
	for i, s := range res.Track {
		if want := start.Add(time.Duration(i) * time.Hour); !s.Time.Equal(want) {
			t.Errorf("sample %d at %v, want %v", i, s.Time, want)
		}
	}
}

func track(start time.Time, alts ...float64) []HorizontalSample {
	out := make([]HorizontalSample, len(alts))
	for i, a := range alts {
		out[i] = HorizontalSample{
			Time:   start.Add(time.Duration(i) * time.Hour),
			AltDeg: a,
			AzDeg:  float64(90 + i*20),
		}
	}
	return out
}

func TestDeriveEphemeris_EdgeCases(t *testing.T) {
	start := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		alts        []float64
		wantRise    int // sample index, -1 for none
		wantSet     int
		wantTransit int
		riseAbsence Absence
		setAbsence  Absence
	}{
		{
			name:     "rises and sets",
			alts:     []float64{-10, -2, 5, 20, 8, -4},
			wantRise: 2, wantSet: 5, wantTransit: 3,
		},
		{
			name:     "already up at window start",
			alts:     []float64{10, 5, -3, -8},
			wantRise: -1, wantSet: 2, wantTransit: 0,
			riseAbsence: AbsenceAlreadyUp,
		},
		{
			name:     "still up at window end",
			alts:     []float64{-8, -2, 4, 12},
			wantRise: 2, wantSet: -1, wantTransit: 3,
			setAbsence: AbsenceStillUp,
		},
		{
			name:     "grazes horizon exactly",
			alts:     []float64{-5, 0, -5},
			wantRise: 1, wantSet: 2, wantTransit: -1,
		},
		{
			name:     "never rises",
			alts:     []float64{-30, -20, -25},
			wantRise: -1, wantSet: -1, wantTransit: -1,
			riseAbsence: AbsenceNeverRises, setAbsence: AbsenceNeverRises,
		},
		{
			name:     "sets then rises again",
			alts:     []float64{6, -1, -3, 2},
			wantRise: 3, wantSet: 1, wantTransit: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := track(start, tt.alts...)
			res := DeriveEphemeris(tr, start)

			checkEvent(t, "Rise", res.Rise, tr, tt.wantRise)
			checkEvent(t, "Set", res.Set, tr, tt.wantSet)

			if tt.wantTransit < 0 {
				if res.Transit != nil {
					t.Errorf("Transit = %+v, want nil", res.Transit)
				}
			} else if res.Transit == nil || !res.Transit.Time.Equal(tr[tt.wantTransit].Time) {
				t.Errorf("Transit = %+v, want sample %d", res.Transit, tt.wantTransit)
			}

			if res.RiseAbsence != tt.riseAbsence {
				t.Errorf("RiseAbsence = %v, want %v", res.RiseAbsence, tt.riseAbsence)
			}
			if res.SetAbsence != tt.setAbsence {
				t.Errorf("SetAbsence = %v, want %v", res.SetAbsence, tt.setAbsence)
			}
		})
	}
}

func checkEvent(t *testing.T, label string, ev *HorizonEvent, tr []HorizontalSample, want int) {
	t.Helper()
	if want < 0 {
		if ev != nil {
			t.Errorf("%s = %+v, want nil", label, ev)
		}
		return
	}
	if ev == nil {
		t.Errorf("%s = nil, want sample %d", label, want)
		return
	}
	if !ev.Time.Equal(tr[want].Time) || ev.AzDeg != tr[want].AzDeg {
		t.Errorf("%s = %+v, want %+v", label, ev, tr[want])
	}
}

func TestDeriveEphemeris_Empty(t *testing.T) {
	res := DeriveEphemeris(nil, time.Now())
	if !res.IsEmpty() {
		t.Errorf("DeriveEphemeris(nil) = %+v, want empty", res)
	}
	if res.RiseAbsence != AbsenceNone || res.SetAbsence != AbsenceNone {
		t.Error("empty result must not claim an absence reason")
	}
}

func TestInterpolateAzimuth_WrapsThroughNorth(t *testing.T) {
	for i := 0; i <= 20; i++ {
		frac := float64(i) / 20
		az := InterpolateAzimuth(350, 10, frac)
		if az < 0 || az >= 360 {
			t.Fatalf("frac %.2f: azimuth %v out of [0,360)", frac, az)
		}
		if az > 10+1e-9 && az < 350-1e-9 {
			t.Errorf("frac %.2f: azimuth %v went the long way round", frac, az)
		}
	}

	if got := InterpolateAzimuth(10, 350, 0.5); math.Abs(got) > 1e-9 && math.Abs(got-360) > 1e-9 {
		t.Errorf("InterpolateAzimuth(10, 350, 0.5) = %v, want 0", got)
	}
	if got := InterpolateAzimuth(90, 180, 0.5); math.Abs(got-135) > 1e-9 {
		t.Errorf("InterpolateAzimuth(90, 180, 0.5) = %v, want 135", got)
	}
}

func TestInterpolatePosition(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := []HorizontalSample{
		{Time: start, AltDeg: 10, AzDeg: 350},
		{Time: start.Add(time.Hour), AltDeg: 20, AzDeg: 10},
		{Time: start.Add(2 * time.Hour), AltDeg: 30, AzDeg: 30},
	}

	tests := []struct {
		name    string
		at      time.Time
		wantAlt float64
		wantAz  float64
	}{
		{"before start clamps", start.Add(-time.Hour), 10, 350},
		{"midpoint across north", start.Add(30 * time.Minute), 15, 0},
		{"quarter", start.Add(75 * time.Minute), 22.5, 15},
		{"after end clamps", start.Add(5 * time.Hour), 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, ok := InterpolatePosition(tr, tt.at)
			if !ok {
				t.Fatal("InterpolatePosition() ok = false")
			}
			if math.Abs(pos.AltDeg-tt.wantAlt) > 1e-9 {
				t.Errorf("AltDeg = %v, want %v", pos.AltDeg, tt.wantAlt)
			}
			if d := math.Abs(pos.AzDeg - tt.wantAz); d > 1e-9 && math.Abs(d-360) > 1e-9 {
				t.Errorf("AzDeg = %v, want %v", pos.AzDeg, tt.wantAz)
			}
		})
	}

	if _, ok := InterpolatePosition(nil, start); ok {
		t.Error("InterpolatePosition(nil) ok = true")
	}
}

func TestEphemerisResultAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := DeriveEphemeris(track(start, -10, 10, 30), start)
	if res.Current.AltDeg != -10 {
		t.Fatalf("Current.AltDeg = %v, want -10", res.Current.AltDeg)
	}

	later := res.At(start.Add(90 * time.Minute))
	if math.Abs(later.Current.AltDeg-20) > 1e-9 {
		t.Errorf("At(+90m).Current.AltDeg = %v, want 20", later.Current.AltDeg)
	}
	if res.Current.AltDeg != -10 {
		t.Error("At must not modify the receiver's position")
	}
}
