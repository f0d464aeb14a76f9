package ephem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/fetch"
)

const (
	// PassFeedURL is the open-notify style ISS pass prediction endpoint.
	PassFeedURL = "http://api.open-notify.org/iss-pass.json"

	// DefaultPassCount is how many upcoming passes are requested.
	DefaultPassCount = 10

	// PassTransitAltitude is the assumed peak altitude of every pass. The
	// feed carries no geometry, so this is an estimate, not a measurement.
	PassTransitAltitude = 45.0

	passTrackStep = time.Minute
)

// Directional estimates for a pass, by hemisphere.
var (
	northPass = passGeometry{RiseAz: 225, TransitAz: 180, SetAz: 45} // SW -> S -> NE
	southPass = passGeometry{RiseAz: 315, TransitAz: 0, SetAz: 135}  // NW -> N -> SE
)

type passGeometry struct {
	RiseAz, TransitAz, SetAz float64
}

// Pass is one predicted satellite pass.
type Pass struct {
	Rise     time.Time     `json:"rise"`
	Duration time.Duration `json:"duration"`
}

// End returns the set time of the pass.
func (p Pass) End() time.Time {
	return p.Rise.Add(p.Duration)
}

// SatelliteProvider synthesizes an ephemeris from a pass prediction feed.
type SatelliteProvider struct {
	client  *fetch.Client
	baseURL string
	count   int
}

// SatelliteOption configures a SatelliteProvider.
type SatelliteOption func(*SatelliteProvider)

// WithPassFeedURL sets a custom feed endpoint.
func WithPassFeedURL(u string) SatelliteOption {
	return func(p *SatelliteProvider) {
		p.baseURL = u
	}
}

// WithPassCount sets how many passes are requested.
func WithPassCount(n int) SatelliteOption {
	return func(p *SatelliteProvider) {
		p.count = n
	}
}

// NewSatelliteProvider creates a pass feed client on top of client.
func NewSatelliteProvider(client *fetch.Client, opts ...SatelliteOption) *SatelliteProvider {
	p := &SatelliteProvider{
		client:  client,
		baseURL: PassFeedURL,
		count:   DefaultPassCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = fetch.NewClient()
	}
	return p
}

// Name implements Provider.
func (p *SatelliteProvider) Name() string {
	return "satellite"
}

// Supports implements Provider. The feed only predicts the ISS.
func (p *SatelliteProvider) Supports(obj catalog.Object) bool {
	return obj.Kind == catalog.KindSatellite && obj.Source.NORAD == catalog.NORADISS
}

// FetchEphemeris implements Provider.
func (p *SatelliteProvider) FetchEphemeris(ctx context.Context, obj catalog.Object, obs astro.Observer, w astro.Window, now time.Time) (astro.EphemerisResult, error) {
	if !p.Supports(obj) {
		return astro.EphemerisResult{}, fmt.Errorf("%s: %w", obj.ID, ErrUnsupported)
	}
	return p.FetchPasses(ctx, obs, w, now)
}

// FetchPasses returns an approximate ephemeris for the first pass that
// rises inside the window. No pass in the window is a valid, empty outcome.
func (p *SatelliteProvider) FetchPasses(ctx context.Context, obs astro.Observer, w astro.Window, now time.Time) (astro.EphemerisResult, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(obs.LatDeg, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(obs.LonDeg, 'f', 4, 64))
	params.Set("n", strconv.Itoa(p.count))

	body, err := p.client.Get(ctx, p.baseURL+"?"+params.Encode(), "application/json")
	if err != nil {
		return astro.EphemerisResult{}, fmt.Errorf("pass feed: %w", err)
	}

	passes, err := ParsePasses(body)
	if err != nil {
		return astro.EphemerisResult{}, fmt.Errorf("pass feed: %w", err)
	}

	pass, ok := FirstPassIn(passes, w)
	if !ok {
		return astro.EphemerisResult{
			RiseAbsence: astro.AbsenceNeverRises,
			SetAbsence:  astro.AbsenceNeverRises,
		}, nil
	}
	return PassEphemeris(pass, obs, now), nil
}

// ParsePasses decodes {"message":"success","response":[{"risetime":..,"duration":..}]}.
func ParsePasses(body []byte) ([]Pass, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON response")
	}
	if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.String() != "success" {
		return nil, fmt.Errorf("feed error: %s", msg.String())
	}

	var passes []Pass
	gjson.GetBytes(body, "response").ForEach(func(_, v gjson.Result) bool {
		rise := v.Get("risetime")
		dur := v.Get("duration")
		if rise.Type != gjson.Number || dur.Type != gjson.Number || dur.Int() <= 0 {
			return true
		}
		passes = append(passes, Pass{
			Rise:     time.Unix(rise.Int(), 0).UTC(),
			Duration: time.Duration(dur.Int()) * time.Second,
		})
		return true
	})
	return passes, nil
}

// FirstPassIn returns the earliest pass whose rise lies inside w.
func FirstPassIn(passes []Pass, w astro.Window) (Pass, bool) {
	var in []Pass
	for _, p := range passes {
		if w.Contains(p.Rise) {
			in = append(in, p)
		}
	}
	if len(in) == 0 {
		return Pass{}, false
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Rise.Before(in[j].Rise) })
	return in[0], true
}

// PassEphemeris synthesizes rise, transit and set for a pass from fixed
// hemisphere-dependent directions. Altitude during the pass follows
// PassTransitAltitude*sin(progress*pi); azimuth moves linearly from the
// rise to the set direction.
func PassEphemeris(pass Pass, obs astro.Observer, now time.Time) astro.EphemerisResult {
	geo := northPass
	if obs.LatDeg < 0 {
		geo = southPass
	}

	set := pass.End()
	res := astro.EphemerisResult{
		Rise:    &astro.HorizonEvent{Time: pass.Rise, AzDeg: geo.RiseAz},
		Set:     &astro.HorizonEvent{Time: set, AzDeg: geo.SetAz},
		Transit: &astro.TransitEvent{Time: pass.Rise.Add(pass.Duration / 2), AzDeg: geo.TransitAz, AltDeg: PassTransitAltitude},
	}

	for t := pass.Rise; ; t = t.Add(passTrackStep) {
		if t.After(set) {
			t = set
		}
		res.Track = append(res.Track, passSample(pass, geo, t))
		if !t.Before(set) {
			break
		}
	}

	if pos, ok := astro.InterpolatePosition(res.Track, now); ok {
		res.Current = &pos
	}
	return res
}

func passSample(pass Pass, geo passGeometry, t time.Time) astro.HorizontalSample {
	progress := float64(t.Sub(pass.Rise)) / float64(pass.Duration)
	progress = math.Max(0, math.Min(1, progress))
	az := geo.RiseAz + (geo.SetAz-geo.RiseAz)*progress
	az = math.Mod(az+360, 360)
	alt := 0.0
	if progress > 0 && progress < 1 {
		alt = PassTransitAltitude * math.Sin(progress*math.Pi)
	}
	return astro.HorizontalSample{Time: t, AltDeg: alt, AzDeg: az}
}
