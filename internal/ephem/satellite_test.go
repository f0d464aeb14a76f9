package ephem

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
)

func passFeed(passes ...Pass) string {
	body := `{"message":"success","request":{"altitude":100,"passes":` + fmt.Sprint(len(passes)) + `},"response":[`
	for i, p := range passes {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"duration":%d,"risetime":%d}`, int(p.Duration.Seconds()), p.Rise.Unix())
	}
	return body + "]}"
}

func TestParsePasses(t *testing.T) {
	body := `{"message":"success","response":[
		{"duration":600,"risetime":1700000000},
		{"duration":"bad","risetime":1700005000},
		{"duration":0,"risetime":1700006000},
		{"duration":420,"risetime":1700010000}
	]}`

	passes, err := ParsePasses([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(passes))
	}
	if passes[0].Duration != 10*time.Minute || passes[0].Rise.Unix() != 1700000000 {
		t.Errorf("pass 0 = %+v", passes[0])
	}

	if _, err := ParsePasses([]byte(`{"message":"failure","reason":"Latitude must be number"}`)); err == nil {
		t.Error("failure message should be an error")
	}
	if _, err := ParsePasses([]byte(`<html>`)); err == nil {
		t.Error("invalid JSON should be an error")
	}
}

func TestFirstPassIn(t *testing.T) {
	start := time.Date(2024, 8, 1, 3, 0, 0, 0, time.UTC)
	w := astro.Window{Start: start, End: start.Add(9 * time.Hour)}

	passes := []Pass{
		{Rise: start.Add(-30 * time.Minute), Duration: 40 * time.Minute}, // rises before the window
		{Rise: start.Add(5 * time.Hour), Duration: 6 * time.Minute},
		{Rise: start.Add(2 * time.Hour), Duration: 4 * time.Minute},
		{Rise: start.Add(12 * time.Hour), Duration: 5 * time.Minute},
	}

	got, ok := FirstPassIn(passes, w)
	if !ok || !got.Rise.Equal(start.Add(2*time.Hour)) {
		t.Errorf("FirstPassIn() = %+v, %v", got, ok)
	}

	if _, ok := FirstPassIn(passes[3:], w); ok {
		t.Error("pass after the window was accepted")
	}
}

func TestPassEphemeris(t *testing.T) {
	rise := time.Date(2024, 8, 1, 4, 0, 0, 0, time.UTC)
	pass := Pass{Rise: rise, Duration: 10 * time.Minute}

	tests := []struct {
		name      string
		obs       astro.Observer
		riseAz    float64
		transitAz float64
		setAz     float64
		midAz     float64
	}{
		{"northern", astro.Observer{LatDeg: 37.7749, LonDeg: -122.4194}, 225, 180, 45, 135},
		{"southern", astro.Observer{LatDeg: -33.8688, LonDeg: 151.2093}, 315, 0, 135, 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := PassEphemeris(pass, tt.obs, rise.Add(5*time.Minute))

			if res.Rise == nil || !res.Rise.Time.Equal(rise) || res.Rise.AzDeg != tt.riseAz {
				t.Errorf("Rise = %+v", res.Rise)
			}
			if res.Set == nil || !res.Set.Time.Equal(rise.Add(10*time.Minute)) || res.Set.AzDeg != tt.setAz {
				t.Errorf("Set = %+v", res.Set)
			}
			if res.Transit == nil || res.Transit.AzDeg != tt.transitAz || res.Transit.AltDeg != PassTransitAltitude {
				t.Errorf("Transit = %+v", res.Transit)
			}
			if res.Current == nil || math.Abs(res.Current.AltDeg-PassTransitAltitude) > 1e-9 {
				t.Errorf("Current at mid-pass = %+v, want peak altitude", res.Current)
			}
			if math.Abs(res.Current.AzDeg-tt.midAz) > 1e-9 {
				t.Errorf("Current azimuth = %v, want %v", res.Current.AzDeg, tt.midAz)
			}
		})
	}
}

func TestPassEphemeris_OutsidePassNotAboveHorizon(t *testing.T) {
	rise := time.Date(2024, 8, 1, 4, 0, 0, 0, time.UTC)
	res := PassEphemeris(Pass{Rise: rise, Duration: 7*time.Minute + 30*time.Second}, astro.Observer{LatDeg: 40}, rise.Add(-time.Hour))

	if res.Current == nil || res.Current.AltDeg > 0 {
		t.Errorf("Current before rise = %+v, want altitude 0", res.Current)
	}
	after := res.At(rise.Add(time.Hour))
	if after.Current.AltDeg > 0 {
		t.Errorf("Current after set = %+v, want altitude 0", after.Current)
	}
	if last := res.Track[len(res.Track)-1]; !last.Time.Equal(rise.Add(7*time.Minute + 30*time.Second)) {
		t.Errorf("track ends at %v, want set time", last.Time)
	}

	quarter := res.At(rise.Add(7*time.Minute + 30*time.Second/4))
	if quarter.Current.AltDeg <= 0 {
		t.Errorf("Current during pass = %+v, want above horizon", quarter.Current)
	}
}

func TestSatelliteProvider_FetchPasses(t *testing.T) {
	start := time.Date(2024, 8, 1, 3, 0, 0, 0, time.UTC)
	w := astro.Window{Start: start, End: start.Add(9 * time.Hour)}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") != "37.7749" || r.URL.Query().Get("n") != "10" {
			t.Errorf("query = %v", r.URL.RawQuery)
		}
		_, _ = rw.Write([]byte(passFeed(
			Pass{Rise: start.Add(-2 * time.Hour), Duration: 5 * time.Minute},
			Pass{Rise: start.Add(3 * time.Hour), Duration: 8 * time.Minute},
		)))
	}))
	defer srv.Close()

	p := NewSatelliteProvider(testClient(), WithPassFeedURL(srv.URL))
	iss, _ := catalog.Get(catalog.IDISS)
	if !p.Supports(iss) {
		t.Fatal("satellite provider does not support the ISS")
	}

	res, err := p.FetchEphemeris(context.Background(), iss, astro.Observer{LatDeg: 37.7749, LonDeg: -122.4194}, w, start)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rise == nil || !res.Rise.Time.Equal(start.Add(3*time.Hour)) {
		t.Errorf("Rise = %+v, want the pass inside the window", res.Rise)
	}
}

func TestSatelliteProvider_NoPassInWindow(t *testing.T) {
	start := time.Date(2024, 8, 1, 3, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(passFeed(Pass{Rise: start.Add(-5 * time.Hour), Duration: 5 * time.Minute})))
	}))
	defer srv.Close()

	p := NewSatelliteProvider(testClient(), WithPassFeedURL(srv.URL))
	res, err := p.FetchPasses(context.Background(), astro.Observer{LatDeg: 10}, astro.Window{Start: start, End: start.Add(8 * time.Hour)}, start)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rise != nil || res.RiseAbsence != astro.AbsenceNeverRises {
		t.Errorf("result = %+v, want never-rises", res)
	}
}
