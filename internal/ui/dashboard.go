package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/report"
	"github.com/litescript/ls-skywatch/internal/state"
)

// Styles for the tonight table
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)

var statusColors = map[catalog.Status]lipgloss.Color{
	catalog.StatusVisible:       "46",
	catalog.StatusNotYetRisen:   "39",
	catalog.StatusAlreadySet:    "244",
	catalog.StatusBelowHorizon:  "240",
	catalog.StatusTooCloseToSun: "214",
}

func statusStyle(s catalog.Status) lipgloss.Style {
	c, ok := statusColors[s]
	if !ok {
		c = "252"
	}
	return lipgloss.NewStyle().Foreground(c)
}

const recentEvents = 4

// DashboardModel lists every object of the night with its status.
type DashboardModel struct {
	width    int
	height   int
	cursor   int
	loc      *time.Location
	snapshot state.Snapshot
	rows     []report.SummaryRow
}

// NewDashboardModel creates a table that shows times in loc.
func NewDashboardModel(loc *time.Location) DashboardModel {
	return DashboardModel{loc: loc}
}

// SetSize updates the viewport size.
func (m DashboardModel) SetSize(width, height int) DashboardModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData replaces the rows, keeping the cursor on the same object
// when it is still listed.
func (m DashboardModel) UpdateData(snapshot state.Snapshot) DashboardModel {
	selected := m.SelectedName()
	m.snapshot = snapshot
	m.rows = report.GenerateSummaryRows(snapshot.Session, m.loc)

	m.cursor = 0
	for i, r := range m.rows {
		if r.Name == selected {
			m.cursor = i
			break
		}
	}
	return m
}

// Update handles messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.rows) > 0 {
				m.cursor = len(m.rows) - 1
			}
		}
	}
	return m, nil
}

// SelectedName returns the name of the highlighted object, or "".
func (m DashboardModel) SelectedName() string {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return ""
	}
	return m.rows[m.cursor].Name
}

// View renders the table.
func (m DashboardModel) View() string {
	if !m.snapshot.HasData {
		return "  Computing tonight's sky...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Tonight"))
	b.WriteString("\n")
	b.WriteString(m.renderTable())
	if events := m.renderEvents(); events != "" {
		b.WriteString("\n")
		b.WriteString(events)
	}
	return b.String()
}

func (m DashboardModel) renderTable() string {
	var b strings.Builder

	header := fmt.Sprintf("%-18s %-9s %-14s %-7s %-9s %-12s %-10s %-12s %s",
		"Object", "Kind", "Status", "Alt", "Az", "Rise", "Transit", "Set", "Notes")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("  No objects\n")
		return b.String()
	}

	maxRows := m.height - 6 - recentEvents
	if maxRows < 5 {
		maxRows = 5
	}
	startIdx := 0
	if m.cursor >= maxRows {
		startIdx = m.cursor - maxRows + 1
	}
	endIdx := startIdx + maxRows
	if endIdx > len(m.rows) {
		endIdx = len(m.rows)
	}

	for i := startIdx; i < endIdx; i++ {
		r := m.rows[i]
		line := fmt.Sprintf(" %-18s %-9s %-14s %-7s %-9s %-12s %-10s %-12s %s",
			truncate(r.Name, 18), r.Kind, r.Status, r.Altitude, r.Azimuth, r.Rise, r.Transit, r.Set, r.Notes)

		switch {
		case i == m.cursor:
			b.WriteString(selectedRowStyle.Render(line))
		case strings.Contains(r.Notes, "stale"):
			b.WriteString(staleStyle.Render(line))
		default:
			var st catalog.Status
			_ = st.UnmarshalText([]byte(r.Status))
			b.WriteString(statusStyle(st).Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.rows) > maxRows {
		b.WriteString(fmt.Sprintf("\n  Showing %d-%d of %d objects", startIdx+1, endIdx, len(m.rows)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DashboardModel) renderEvents() string {
	events := m.snapshot.Events
	if len(events) == 0 {
		return ""
	}
	if len(events) > recentEvents {
		events = events[len(events)-recentEvents:]
	}

	var b strings.Builder
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		b.WriteString(eventStyle.Render(fmt.Sprintf("  %s  %s", e.Timestamp.In(m.loc).Format("15:04"), describeEvent(e))))
		b.WriteString("\n")
	}
	return b.String()
}

func describeEvent(e state.Event) string {
	switch e.Type {
	case state.EventStatusChanged:
		return fmt.Sprintf("%s: %s → %s", e.Object, e.From, e.To)
	case state.EventStaleData:
		return fmt.Sprintf("%s: showing last known data", e.Object)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s: %s", e.Object, e.Detail)
		}
		return fmt.Sprintf("%s: %s", e.Object, e.Type)
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
