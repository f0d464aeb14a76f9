// Package report renders sessions as text tables and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/weather"
)

// SessionExport is the JSON-serializable representation of a session.
type SessionExport struct {
	Date       string             `json:"date"`
	Location   LocationExport     `json:"location"`
	Night      NightExport        `json:"night"`
	ComputedAt time.Time          `json:"computed_at"`
	Objects    []ObjectExport     `json:"objects"`
	Counts     map[string]int     `json:"counts"`
	Weather    *weather.Rating    `json:"weather,omitempty"`
	Failures   []catalog.ObjectID `json:"failures,omitempty"`
}

// LocationExport is a JSON-friendly observer.
type LocationExport struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AltitudeM float64 `json:"altitude_m"`
	Name      string  `json:"name,omitempty"`
	Display   string  `json:"display"`
}

// NightExport is a JSON-friendly night plan.
type NightExport struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Hours     float64   `json:"hours"`
	Condition string    `json:"condition"`
	Source    string    `json:"source"`
}

// ObjectExport is a JSON-friendly object with its derived fields.
type ObjectExport struct {
	ID         catalog.ObjectID `json:"id"`
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	Difficulty string           `json:"difficulty"`
	Status     string           `json:"status"`
	Stale      bool             `json:"stale,omitempty"`
	Phase      string           `json:"phase,omitempty"`

	Rise        *time.Time `json:"rise,omitempty"`
	RiseAz      *float64   `json:"rise_az,omitempty"`
	RiseNote    string     `json:"rise_note,omitempty"`
	Set         *time.Time `json:"set,omitempty"`
	SetAz       *float64   `json:"set_az,omitempty"`
	SetNote     string     `json:"set_note,omitempty"`
	Transit     *time.Time `json:"transit,omitempty"`
	TransitAlt  *float64   `json:"transit_alt,omitempty"`
	Altitude    *float64   `json:"altitude,omitempty"`
	Azimuth     *float64   `json:"azimuth,omitempty"`
	Illuminated *float64   `json:"illumination_pct,omitempty"`
}

// ExportSession converts a session to an exportable format. failed lists
// the objects whose last fetch failed; rating may be nil.
func ExportSession(s catalog.Session, rating *weather.Rating, failed []catalog.ObjectID) *SessionExport {
	export := &SessionExport{
		Date: s.Date.Format("2006-01-02"),
		Location: LocationExport{
			Lat:       s.Observer.LatDeg,
			Lon:       s.Observer.LonDeg,
			AltitudeM: s.Observer.AltitudeM,
			Name:      s.Observer.Name,
			Display:   s.Observer.String(),
		},
		Night: NightExport{
			Start:     s.Night.Window.Start,
			End:       s.Night.Window.End,
			Hours:     s.Night.Window.Duration().Hours(),
			Condition: s.Night.Condition.String(),
			Source:    s.Night.Source.String(),
		},
		ComputedAt: s.ComputedAt,
		Counts:     make(map[string]int),
		Weather:    rating,
		Failures:   failed,
	}

	for _, o := range sortedObjects(s.Objects) {
		export.Objects = append(export.Objects, exportObject(o))
		export.Counts[o.Status.String()]++
	}
	return export
}

func exportObject(o catalog.Object) ObjectExport {
	out := ObjectExport{
		ID:         o.ID,
		Name:       o.Name,
		Kind:       o.Kind.String(),
		Difficulty: o.Difficulty.String(),
		Status:     o.Status.String(),
		Stale:      o.Stale,
		Phase:      o.Phase.String(),
	}
	e := o.Ephemeris
	if e == nil {
		return out
	}
	if e.Rise != nil {
		out.Rise, out.RiseAz = &e.Rise.Time, &e.Rise.AzDeg
	}
	out.RiseNote = e.RiseAbsence.String()
	if e.Set != nil {
		out.Set, out.SetAz = &e.Set.Time, &e.Set.AzDeg
	}
	out.SetNote = e.SetAbsence.String()
	if e.Transit != nil {
		out.Transit, out.TransitAlt = &e.Transit.Time, &e.Transit.AltDeg
	}
	if e.Current != nil {
		out.Altitude, out.Azimuth = &e.Current.AltDeg, &e.Current.AzDeg
	}
	if e.Lunar != nil {
		out.Illuminated = &e.Lunar.IlluminationPct
	}
	return out
}

// WriteJSON writes the session as JSON to the given writer.
func (s *SessionExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// statusOrder ranks statuses for display, most observable first.
var statusOrder = map[catalog.Status]int{
	catalog.StatusVisible:       0,
	catalog.StatusNotYetRisen:   1,
	catalog.StatusAlreadySet:    2,
	catalog.StatusBelowHorizon:  3,
	catalog.StatusTooCloseToSun: 4,
}

// sortedObjects orders objects by status, then by current altitude
// (highest first), then by name.
func sortedObjects(objects []catalog.Object) []catalog.Object {
	out := append([]catalog.Object(nil), objects...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if statusOrder[a.Status] != statusOrder[b.Status] {
			return statusOrder[a.Status] < statusOrder[b.Status]
		}
		if aa, ba := altitude(a), altitude(b); aa != ba {
			return aa > ba
		}
		return a.Name < b.Name
	})
	return out
}

func altitude(o catalog.Object) float64 {
	if o.Ephemeris == nil || o.Ephemeris.Current == nil {
		return -90
	}
	return o.Ephemeris.Current.AltDeg
}

// SummaryRow represents one row in the summary table.
type SummaryRow struct {
	Name     string
	Kind     string
	Status   string
	Altitude string
	Azimuth  string
	Rise     string
	Transit  string
	Set      string
	Notes    string
}

// GenerateSummaryRows creates summary rows with times shown in loc.
func GenerateSummaryRows(s catalog.Session, loc *time.Location) []SummaryRow {
	var rows []SummaryRow
	for _, o := range sortedObjects(s.Objects) {
		row := SummaryRow{
			Name:     o.Name,
			Kind:     o.Kind.String(),
			Status:   o.Status.String(),
			Altitude: "-",
			Azimuth:  "-",
			Rise:     "-",
			Transit:  "-",
			Set:      "-",
		}

		var notes []string
		if e := o.Ephemeris; e != nil {
			if e.Current != nil {
				row.Altitude = fmt.Sprintf("%+.1f°", e.Current.AltDeg)
				row.Azimuth = fmt.Sprintf("%.0f° %s", e.Current.AzDeg, CompassPoint(e.Current.AzDeg))
			}
			row.Rise = formatEvent(e.Rise, e.RiseAbsence, loc)
			row.Set = formatEvent(e.Set, e.SetAbsence, loc)
			if e.Transit != nil {
				row.Transit = fmt.Sprintf("%s %.0f°", e.Transit.Time.In(loc).Format("15:04"), e.Transit.AltDeg)
			}
			if e.Lunar != nil {
				notes = append(notes, fmt.Sprintf("%s %.0f%%", o.Phase, e.Lunar.IlluminationPct))
			}
		}
		if o.Stale {
			notes = append(notes, "stale")
		}
		row.Notes = strings.Join(notes, ", ")
		rows = append(rows, row)
	}
	return rows
}

func formatEvent(ev *astro.HorizonEvent, absence astro.Absence, loc *time.Location) string {
	if ev != nil {
		return fmt.Sprintf("%s %s", ev.Time.In(loc).Format("15:04"), CompassPoint(ev.AzDeg))
	}
	switch absence {
	case astro.AbsenceAlreadyUp:
		return "up at dusk"
	case astro.AbsenceStillUp:
		return "up at dawn"
	case astro.AbsenceNeverRises:
		return "never"
	}
	return "-"
}

var compass = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// CompassPoint names the 16-wind direction of an azimuth.
func CompassPoint(az float64) string {
	idx := int((az+11.25)/22.5) % 16
	if idx < 0 {
		idx += 16
	}
	return compass[idx]
}

// WriteSummaryTable writes a text table to the given writer.
func WriteSummaryTable(w io.Writer, s catalog.Session, loc *time.Location) {
	rows := GenerateSummaryRows(s, loc)

	fmt.Fprintf(w, "Night of %s @ %s\n", s.Date.Format("2006-01-02"), s.Observer)
	fmt.Fprintln(w, strings.Repeat("─", 104))

	if len(rows) == 0 {
		fmt.Fprintln(w, "No objects")
		return
	}

	// Header
	fmt.Fprintf(w, "%-18s %-9s %-14s %-7s %-9s %-12s %-10s %-12s %s\n",
		"Object", "Kind", "Status", "Alt", "Az", "Rise", "Transit", "Set", "Notes")
	fmt.Fprintln(w, strings.Repeat("─", 104))

	// Rows
	for _, r := range rows {
		fmt.Fprintf(w, "%-18s %-9s %-14s %-7s %-9s %-12s %-10s %-12s %s\n",
			truncateStr(r.Name, 18),
			r.Kind,
			r.Status,
			r.Altitude,
			r.Azimuth,
			r.Rise,
			r.Transit,
			r.Set,
			r.Notes,
		)
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	fmt.Fprintf(w, "\nTotal: %d objects, %d visible now\n", len(rows), counts[catalog.StatusVisible.String()])
}

// WriteNightPlan writes the observing window and polar condition.
func WriteNightPlan(w io.Writer, plan astro.NightPlan, obs astro.Observer, loc *time.Location) {
	fmt.Fprintf(w, "Night of %s @ %s\n", plan.Date.Format("2006-01-02"), obs)
	fmt.Fprintln(w, strings.Repeat("─", 48))
	fmt.Fprintf(w, "%-12s %s\n", "Dusk", plan.Window.Start.In(loc).Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "%-12s %s\n", "Dawn", plan.Window.End.In(loc).Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "%-12s %s\n", "Length", formatHours(plan.Window.Duration()))
	fmt.Fprintf(w, "%-12s %s\n", "Condition", plan.Condition)
	fmt.Fprintf(w, "%-12s %s\n", "Window", windowSourceText(plan.Source))
}

func windowSourceText(s astro.WindowSource) string {
	switch s {
	case astro.WindowTwilight:
		return "civil twilight (sun at -6°)"
	case astro.WindowSunset:
		return "sunset to sunrise (no civil dark)"
	case astro.WindowFullDay:
		return "full day (sun never crosses the horizon)"
	}
	return s.String()
}

func formatHours(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}

// WriteWeather writes a forecast rating.
func WriteWeather(w io.Writer, r weather.Rating, current weather.Conditions) {
	fmt.Fprintf(w, "Weather: %s", r.Quality)
	if r.HoursInWindow > 0 {
		fmt.Fprintf(w, " (%.0f%% cloud over %d h, humidity %.0f%%, wind up to %.0f km/h)",
			r.MeanCloud, r.HoursInWindow, r.MeanHumidity, r.MaxWindKmh)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Now: %.0f%% cloud (low %.0f / mid %.0f / high %.0f), visibility %.1f km\n",
		current.CloudCover, current.CloudLow, current.CloudMid, current.CloudHigh, current.VisibilityM/1000)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
