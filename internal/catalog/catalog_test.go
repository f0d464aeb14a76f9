package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
)

func TestDefault_UniqueIDs(t *testing.T) {
	objs := Default()
	if len(objs) == 0 {
		t.Fatal("Default() returned an empty catalog")
	}

	seen := make(map[ObjectID]bool)
	for _, o := range objs {
		if o.ID == "" {
			t.Errorf("object %q has no id", o.Name)
		}
		if seen[o.ID] {
			t.Errorf("duplicate id %q", o.ID)
		}
		seen[o.ID] = true
	}
}

func TestDefault_SourcesMatchKind(t *testing.T) {
	for _, o := range Default() {
		switch o.Kind {
		case KindPlanet, KindMoon:
			if o.Source.Command == "" {
				t.Errorf("%s: solar-system body without a Horizons command", o.ID)
			}
		case KindSatellite:
			if o.Source.NORAD == 0 {
				t.Errorf("%s: satellite without a NORAD id", o.ID)
			}
		case KindDeepSky:
			if o.Source.RAHours < 0 || o.Source.RAHours >= 24 {
				t.Errorf("%s: RA %v out of range", o.ID, o.Source.RAHours)
			}
			if o.Source.DecDeg < -90 || o.Source.DecDeg > 90 {
				t.Errorf("%s: Dec %v out of range", o.ID, o.Source.DecDeg)
			}
		}
	}
}

func TestDefault_ReturnsFreshCopies(t *testing.T) {
	a := Default()
	a[0].Status = StatusVisible
	a[0].Name = "changed"

	b := Default()
	if b[0].Status != StatusBelowHorizon || b[0].Name == "changed" {
		t.Error("Default() shares state between calls")
	}
}

func TestGetByName(t *testing.T) {
	tests := []struct {
		name string
		want ObjectID
	}{
		{"Moon", IDMoon},
		{"moon", IDMoon},
		{"  JUPITER ", IDJupiter},
		{"polaris", IDPolaris},
		{"Orion Nebula (M42)", "m42"},
		{"m42", "m42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ok := GetByName(tt.name)
			if !ok {
				t.Fatalf("GetByName(%q) not found", tt.name)
			}
			if o.ID != tt.want {
				t.Errorf("GetByName(%q) = %q, want %q", tt.name, o.ID, tt.want)
			}
		})
	}

	if _, ok := GetByName("Death Star"); ok {
		t.Error("GetByName(unknown) ok = true")
	}
}

func TestSelect(t *testing.T) {
	objs, missing := Select([]ObjectID{IDMars, "nope", IDPolaris})
	if len(objs) != 2 || objs[0].ID != IDMars || objs[1].ID != IDPolaris {
		t.Errorf("Select() objects = %v", objs)
	}
	if len(missing) != 1 || missing[0] != "nope" {
		t.Errorf("Select() missing = %v", missing)
	}
}

func TestLookupAndOfKind(t *testing.T) {
	objs := Default()
	if i := Lookup(objs, IDISS); i < 0 || objs[i].ID != IDISS {
		t.Errorf("Lookup(iss) = %d", i)
	}
	if i := Lookup(objs, "missing"); i != -1 {
		t.Errorf("Lookup(missing) = %d, want -1", i)
	}

	remote := OfKind(objs, KindPlanet, KindMoon)
	if len(remote) != 8 {
		t.Errorf("OfKind(planet, moon) = %d objects, want 8", len(remote))
	}
}

func TestKeyFor(t *testing.T) {
	date := time.Date(2024, 8, 1, 21, 30, 0, 0, time.UTC)

	a := KeyFor(date, astro.Observer{LatDeg: 37.77491, LonDeg: -122.41941})
	b := KeyFor(date.Add(time.Hour), astro.Observer{LatDeg: 37.7712, LonDeg: -122.4188})
	if a != b {
		t.Errorf("nearby locations on the same date should share a key: %v vs %v", a, b)
	}
	if got, want := a.String(), "2024-08-01@37.77,-122.42"; got != want {
		t.Errorf("key = %q, want %q", got, want)
	}

	c := KeyFor(date.AddDate(0, 0, 1), astro.Observer{LatDeg: 37.77491, LonDeg: -122.41941})
	if a == c {
		t.Error("different dates must not share a key")
	}

	z := KeyFor(date, astro.Observer{LatDeg: -0.001, LonDeg: 0.001})
	if z.String() != "2024-08-01@0.00,0.00" {
		t.Errorf("near-zero key = %q", z.String())
	}
}

func TestObjectClone(t *testing.T) {
	orig := Object{
		ID: IDMars,
		Ephemeris: &astro.EphemerisResult{
			Track: []astro.HorizontalSample{{AltDeg: 10}},
		},
	}

	c := orig.Clone()
	c.Ephemeris.Track[0].AltDeg = 99
	c.Ephemeris.Transit = &astro.TransitEvent{}

	if orig.Ephemeris.Track[0].AltDeg != 10 || orig.Ephemeris.Transit != nil {
		t.Error("Clone shares ephemeris state with the original")
	}
}

func TestResetProjection(t *testing.T) {
	o := Object{ID: IDMoon, Name: "Moon", Kind: KindMoon, Status: StatusVisible, Fetched: true, Stale: true, Phase: PhaseFull}
	r := o.ResetProjection()
	if r.ID != IDMoon || r.Name != "Moon" || r.Kind != KindMoon {
		t.Errorf("static fields lost: %+v", r)
	}
	if r.Status != StatusBelowHorizon || r.Fetched || r.Stale || r.Phase != PhaseNone {
		t.Errorf("projection not cleared: %+v", r)
	}
}

func TestSessionJSON(t *testing.T) {
	s := Session{
		Date:     time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		Observer: astro.Observer{LatDeg: 37.7749, LonDeg: -122.4194},
		Objects: []Object{
			{ID: IDMoon, Kind: KindMoon, Status: StatusNotYetRisen, Phase: PhaseWaxingGibbous},
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	obj := raw["objects"].([]any)[0].(map[string]any)
	if obj["status"] != "not-yet-risen" || obj["phase"] != "waxing-gibbous" || obj["kind"] != "moon" {
		t.Errorf("enum fields not text encoded: %v", obj)
	}

	var back Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Objects[0].Status != StatusNotYetRisen || back.Objects[0].Phase != PhaseWaxingGibbous {
		t.Errorf("decoded object = %+v", back.Objects[0])
	}
}

func TestStatusUnmarshalUnknown(t *testing.T) {
	var s Status
	if err := s.UnmarshalText([]byte("sparkling")); err == nil {
		t.Error("UnmarshalText(unknown) error = nil")
	}
}
