package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/state"
)

func TestDashboard_CursorFollowsObject(t *testing.T) {
	m := NewDashboardModel(time.UTC).SetSize(120, 30).UpdateData(testSnapshot(testDay))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.SelectedName() != "Polaris" {
		t.Fatalf("selected = %q, want Polaris", m.SelectedName())
	}

	// Polaris drops below Saturn in altitude order but stays selected.
	snap := testSnapshot(testDay)
	snap.Session.Objects[0].Ephemeris.Current.AltDeg = 70
	m = m.UpdateData(snap)
	if m.SelectedName() != "Polaris" || m.cursor != 0 {
		t.Errorf("selected = %q at %d, want Polaris at 0", m.SelectedName(), m.cursor)
	}
}

func TestDashboard_CursorBounds(t *testing.T) {
	m := NewDashboardModel(time.UTC).UpdateData(testSnapshot(testDay))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at top", m.cursor)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want last row", m.cursor)
	}

	if got := NewDashboardModel(time.UTC).SelectedName(); got != "" {
		t.Errorf("empty table selected %q", got)
	}
}

func TestDashboard_View(t *testing.T) {
	m := NewDashboardModel(time.UTC).SetSize(120, 30)
	if !strings.Contains(m.View(), "Computing") {
		t.Errorf("empty view = %q", m.View())
	}

	snap := testSnapshot(testDay)
	snap.Session.Objects[1].Stale = true
	snap.Events = []state.Event{
		{Type: state.EventStatusChanged, Timestamp: testDay.Add(28 * time.Hour), Object: catalog.IDSaturn, From: "not-yet-risen", To: "visible"},
		{Type: state.EventStaleData, Timestamp: testDay.Add(29 * time.Hour), Object: catalog.IDJupiter},
	}
	view := m.UpdateData(snap).View()

	for _, want := range []string{"Tonight", "Saturn", "not-yet-risen", "stale", "saturn: not-yet-risen → visible", "05:00  jupiter: showing last known data"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Index(view, "jupiter: showing") > strings.Index(view, "saturn: not-yet-risen") {
		t.Error("newest event should be listed first")
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		e    state.Event
		want string
	}{
		{state.Event{Type: state.EventStatusChanged, Object: "mars", From: "visible", To: "already-set"}, "mars: visible → already-set"},
		{state.Event{Type: state.EventStaleData, Object: "iss"}, "iss: showing last known data"},
		{state.Event{Type: state.EventInconsistent, Object: "moon", Detail: "rise passed but below horizon"}, "moon: rise passed but below horizon"},
		{state.Event{Type: state.EventInconsistent, Object: "moon"}, "moon: INCONSISTENT_DATA"},
	}
	for _, tt := range tests {
		if got := describeEvent(tt.e); got != tt.want {
			t.Errorf("describeEvent(%v) = %q, want %q", tt.e.Type, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Polaris", 18, "Polaris"},
		{"Andromeda Galaxy M31", 10, "Androme..."},
		{"Sigma Octantis", 3, "Sig"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
