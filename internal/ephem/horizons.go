package ephem

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/fetch"
)

const (
	// HorizonsAPIURL is the JPL Horizons JSON API endpoint.
	HorizonsAPIURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// HorizonsStep is the tabulation step requested from Horizons.
	HorizonsStep = time.Hour
)

// Horizons QUANTITIES codes: 4 = apparent Az/El, 10 = illuminated fraction,
// 23 = Sun-Observer-Target elongation with /T (trailing) or /L (leading).
const (
	quantitiesAzEl = "4"
	quantitiesMoon = "4,10,23"
)

// HorizonsProvider queries JPL Horizons for planet and Moon ephemerides.
type HorizonsProvider struct {
	client  *fetch.Client
	baseURL string
}

// HorizonsOption configures a HorizonsProvider.
type HorizonsOption func(*HorizonsProvider)

// WithHorizonsURL sets a custom API endpoint.
func WithHorizonsURL(u string) HorizonsOption {
	return func(p *HorizonsProvider) {
		p.baseURL = u
	}
}

// NewHorizonsProvider creates a Horizons client on top of client.
func NewHorizonsProvider(client *fetch.Client, opts ...HorizonsOption) *HorizonsProvider {
	p := &HorizonsProvider{
		client:  client,
		baseURL: HorizonsAPIURL,
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
func (p *HorizonsProvider) Name() string {
	return "horizons"
}

// Supports implements Provider.
func (p *HorizonsProvider) Supports(obj catalog.Object) bool {
	return (obj.Kind == catalog.KindPlanet || obj.Kind == catalog.KindMoon) && obj.Source.Command != ""
}

// FetchEphemeris implements Provider.
func (p *HorizonsProvider) FetchEphemeris(ctx context.Context, obj catalog.Object, obs astro.Observer, w astro.Window, now time.Time) (astro.EphemerisResult, error) {
	if !p.Supports(obj) {
		return astro.EphemerisResult{}, fmt.Errorf("%s: %w", obj.ID, ErrUnsupported)
	}

	body, err := p.client.Get(ctx, p.queryURL(obj, obs, w), "application/json")
	if err != nil {
		return astro.EphemerisResult{}, fmt.Errorf("horizons %s: %w", obj.ID, err)
	}

	table, err := parseHorizonsEnvelope(body)
	if err != nil {
		return astro.EphemerisResult{}, fmt.Errorf("horizons %s: %w", obj.ID, err)
	}

	rows := ParseEphemerisTable(table)
	return rowsToResult(rows, now), nil
}

// queryURL builds the request. Values must be quoted with single quotes.
func (p *HorizonsProvider) queryURL(obj catalog.Object, obs astro.Observer, w astro.Window) string {
	quantities := quantitiesAzEl
	if obj.Kind == catalog.KindMoon {
		quantities = quantitiesMoon
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%s'", obj.Source.Command))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "OBSERVER")
	params.Set("CENTER", "'coord@399'")
	params.Set("COORD_TYPE", "GEODETIC")
	params.Set("SITE_COORD", fmt.Sprintf("'%.4f,%.4f,%.3f'", obs.LonDeg, obs.LatDeg, obs.AltitudeM/1000))
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(w.Start)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(w.End)))
	params.Set("STEP_SIZE", fmt.Sprintf("'%s'", formatStepSize(HorizonsStep)))
	params.Set("QUANTITIES", fmt.Sprintf("'%s'", quantities))

	return p.baseURL + "?" + params.Encode()
}

// parseHorizonsEnvelope extracts the text table from the JSON envelope.
func parseHorizonsEnvelope(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("invalid JSON response")
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() && e.String() != "" {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(e.String()))
	}
	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return "", errors.New("response has no result field")
	}
	return result.String(), nil
}

// EphemerisRow is one parsed line of a Horizons observer table.
type EphemerisRow struct {
	Time  time.Time
	AzDeg float64
	ElDeg float64

	// Moon only; HasLunar is false when the columns are absent.
	HasLunar        bool
	IlluminationPct float64
	ElongationDeg   float64 // [0, 360), < 180 while waxing
}

// ParseEphemerisTable extracts rows between the $$SOE and $$EOE markers.
// Lines that cannot be parsed are skipped; a table without markers or
// without valid lines yields no rows.
func ParseEphemerisTable(result string) []EphemerisRow {
	soeIdx := strings.Index(result, "$$SOE")
	eoeIdx := strings.Index(result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		return nil
	}

	var rows []EphemerisRow
	for _, line := range strings.Split(result[soeIdx+5:eoeIdx], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row, err := parseEphemerisLine(line)
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// parseEphemerisLine parses a single ephemeris data line.
//
//	2025-Dec-05 00:00 *   261.032124  32.878027
//	2025-Dec-05 01:00  m  101.2210   12.5521   63.8120  105.7713 /T
//
// Fields: date, time, optional presence flags, azimuth, elevation and, for
// the Moon, illumination % and S-O-T elongation followed by /T or /L.
func parseEphemerisLine(line string) (EphemerisRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return EphemerisRow{}, fmt.Errorf("insufficient fields: %d", len(fields))
	}

	t, err := parseHorizonsDateTime(fields[0] + " " + fields[1])
	if err != nil {
		return EphemerisRow{}, err
	}

	var nums []float64
	marker := ""
	for _, f := range fields[2:] {
		if f == "/T" || f == "/L" {
			marker = f
			continue
		}
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) < 2 {
		return EphemerisRow{}, errors.New("could not find Az/El values")
	}

	row := EphemerisRow{Time: t, AzDeg: nums[0], ElDeg: nums[1]}
	if row.ElDeg < -90 || row.ElDeg > 90 || row.AzDeg < 0 || row.AzDeg > 360 {
		return EphemerisRow{}, fmt.Errorf("Az/El out of range: %v %v", row.AzDeg, row.ElDeg)
	}

	if len(nums) >= 4 {
		row.HasLunar = true
		row.IlluminationPct = nums[2]
		row.ElongationDeg = nums[3]
		if marker == "/L" {
			row.ElongationDeg = 360 - nums[3]
		}
	}
	return row, nil
}

// rowsToResult derives the result from parsed rows with the same algorithm
// used for locally computed tracks.
func rowsToResult(rows []EphemerisRow, now time.Time) astro.EphemerisResult {
	if len(rows) == 0 {
		return astro.EphemerisResult{}
	}

	track := make([]astro.HorizontalSample, len(rows))
	for i, r := range rows {
		track[i] = astro.HorizontalSample{Time: r.Time, AltDeg: r.ElDeg, AzDeg: r.AzDeg}
	}
	res := astro.DeriveEphemeris(track, now)

	if lunar, ok := lunarAt(rows, now); ok {
		res.Lunar = &lunar
	}
	return res
}

// lunarAt picks the Moon columns of the row nearest to now.
func lunarAt(rows []EphemerisRow, now time.Time) (astro.LunarData, bool) {
	best := -1
	var bestDist time.Duration
	for i, r := range rows {
		if !r.HasLunar {
			continue
		}
		d := r.Time.Sub(now)
		if d < 0 {
			d = -d
		}
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return astro.LunarData{}, false
	}
	return astro.LunarData{
		IlluminationPct: rows[best].IlluminationPct,
		ElongationDeg:   rows[best].ElongationDeg,
	}, true
}

// parseHorizonsDateTime parses Horizons date format like "2025-Dec-05 00:00".
func parseHorizonsDateTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-Jan-02 15:04", "2006-Jan-02 15:04:05", "2006-Jan-02 15:04:05.000"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// formatHorizonsTime formats a time for Horizons API.
func formatHorizonsTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// formatStepSize formats a duration as a Horizons step size.
func formatStepSize(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes >= 60 {
		return fmt.Sprintf("%d h", minutes/60)
	}
	return fmt.Sprintf("%d m", minutes)
}
