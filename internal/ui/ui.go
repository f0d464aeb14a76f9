// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/state"
	"github.com/litescript/ls-skywatch/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewTonight ViewMode = iota
	ViewSky
)

// Source is the session state the UI drives. *state.Manager implements it.
type Source interface {
	Refresh(ctx context.Context, date time.Time, obs astro.Observer) (state.Snapshot, error)
	Tick(now time.Time) state.Snapshot
}

// Msg types for Bubble Tea
type (
	// TickMsg re-derives positions for the current minute.
	TickMsg time.Time

	// AnimTickMsg drives the spinner while a refresh runs.
	AnimTickMsg time.Time

	// DataUpdateMsg carries the snapshot committed by a refresh.
	DataUpdateMsg struct {
		Snapshot state.Snapshot
		Date     time.Time
	}

	// ErrorMsg signals a refresh that committed nothing.
	ErrorMsg struct {
		Error error
		Date  time.Time
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	ctx context.Context
	src Source
	obs astro.Observer
	loc *time.Location

	tickEvery time.Duration

	// UI state
	viewMode   ViewMode
	width      int
	height     int
	ready      bool
	refreshing bool
	animTick   int

	date     time.Time // night being shown
	snapshot state.Snapshot
	lastErr  error

	tonight DashboardModel
	skyView SkyViewModel
}

// New creates the root model for the night of date at obs. Refreshes run
// under ctx; times are displayed in loc.
func New(ctx context.Context, src Source, obs astro.Observer, date time.Time, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	return Model{
		ctx:        ctx,
		src:        src,
		obs:        obs,
		loc:        loc,
		tickEvery:  time.Minute,
		date:       dayOf(date),
		refreshing: true,
		tonight:    NewDashboardModel(loc),
		skyView:    NewSkyViewModel(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		tickCmd(m.tickEvery),
		animTickCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "1":
			m.switchView(ViewTonight)
		case "2", "s":
			m.switchView(ViewSky)
		case "tab":
			m.switchView((m.viewMode + 1) % 2)

		case "r":
			cmds = append(cmds, m.startRefresh()...)
		case "left", "h":
			m.date = m.date.AddDate(0, 0, -1)
			cmds = append(cmds, m.startRefresh()...)
		case "right", "l":
			m.date = m.date.AddDate(0, 0, 1)
			cmds = append(cmds, m.startRefresh()...)
		case "t":
			m.date = dayOf(time.Now().In(m.loc))
			cmds = append(cmds, m.startRefresh()...)

		default:
			cmds = append(cmds, m.updateActiveView(msg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Header takes 4 lines, footer 2
		contentHeight := msg.Height - 6
		m.tonight = m.tonight.SetSize(msg.Width, contentHeight)
		m.skyView = m.skyView.SetSize(msg.Width, contentHeight)

	case TickMsg:
		cmds = append(cmds, tickCmd(m.tickEvery))
		if m.snapshot.HasData && !m.refreshing {
			m.setSnapshot(m.src.Tick(time.Time(msg)))
		}

	case AnimTickMsg:
		m.animTick++
		if m.refreshing {
			cmds = append(cmds, animTickCmd())
		}
		cmds = append(cmds, m.updateActiveView(msg))

	case DataUpdateMsg:
		// Results for a night the user has already left are dropped.
		if !msg.Date.Equal(m.date) {
			break
		}
		m.refreshing = false
		m.lastErr = nil
		m.setSnapshot(msg.Snapshot)

	case ErrorMsg:
		if !msg.Date.Equal(m.date) {
			break
		}
		m.refreshing = false
		m.lastErr = msg.Error

	default:
		cmds = append(cmds, m.updateActiveView(msg))
	}

	return m, tea.Batch(cmds...)
}

// switchView changes the active view. Entering the sky view focuses the
// object selected in the table.
func (m *Model) switchView(v ViewMode) {
	if v == ViewSky && m.viewMode != ViewSky {
		m.skyView = m.skyView.FocusObject(m.tonight.SelectedName())
	}
	m.viewMode = v
}

func (m *Model) setSnapshot(s state.Snapshot) {
	m.snapshot = s
	m.tonight = m.tonight.UpdateData(s)
	m.skyView = m.skyView.UpdateData(s)
}

// startRefresh begins a refresh for m.date. The manager cancels any refresh
// still in flight.
func (m *Model) startRefresh() []tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd()}
	if !m.refreshing {
		cmds = append(cmds, animTickCmd())
	}
	m.refreshing = true
	return cmds
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, src, date, obs := m.ctx, m.src, m.date, m.obs
	return func() tea.Msg {
		snap, err := src.Refresh(ctx, date, obs)
		switch {
		case errors.Is(err, state.ErrSuperseded):
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ErrorMsg{Error: err, Date: date}
		}
		// Partial failures are reported through Snapshot.LastError.
		return DataUpdateMsg{Snapshot: snap, Date: date}
	}
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewTonight:
		m.tonight, cmd = m.tonight.Update(msg)
	case ViewSky:
		m.skyView, cmd = m.skyView.Update(msg)
	}
	return cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewTonight:
		content = m.tonight.View()
	case ViewSky:
		content = m.skyView.View()
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	brand := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var b strings.Builder
	b.WriteString("  " + brand.Render("ls-skywatch") + muted.Render(fmt.Sprintf(" v%s", version.Version)))
	b.WriteString("  " + m.obs.String())
	b.WriteString("\n")
	b.WriteString("  " + m.renderNightLine())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderNightLine() string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A33D"))

	line := "Night of " + m.date.Format("Mon 2006-01-02")
	s := m.snapshot.Session
	if !m.snapshot.HasData || !s.Date.Equal(m.date) {
		return line + dim.Render("  (computing)")
	}

	w := s.Night.Window
	line += dim.Render(fmt.Sprintf("  dusk %s  dawn %s  (%s)",
		w.Start.In(m.loc).Format("15:04"), w.End.In(m.loc).Format("15:04"),
		formatDuration(w.Duration())))
	if s.Night.Condition != astro.PolarNormal {
		line += "  " + warn.Render(s.Night.Condition.String())
	}
	if n := m.snapshot.Counts()[catalog.StatusVisible]; n > 0 {
		line += "  " + statusStyle(catalog.StatusVisible).Render(fmt.Sprintf("%d visible now", n))
	}
	return line
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Tonight", "[2] Sky"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	switch {
	case m.refreshing:
		status = accentStyle.Render(spinner) + dimStyle.Render(" computing night...")
	case m.lastErr != nil:
		status = errorStyle.Render("ERROR: " + m.lastErr.Error())
	case m.snapshot.LastError != nil:
		status = errorStyle.Render(m.snapshot.LastError.Error()) + dimStyle.Render(" (showing last known)")
	case !m.snapshot.LastRefresh.IsZero():
		status = dimStyle.Render("updated " + m.snapshot.LastRefresh.In(m.loc).Format("15:04:05"))
		if m.snapshot.FromCache {
			status += dimStyle.Render(" from cache")
		} else if m.snapshot.RefreshDuration > 0 {
			status += dimStyle.Render(" in " + m.snapshot.RefreshDuration.Round(time.Millisecond).String())
		}
	}

	var help string
	switch m.viewMode {
	case ViewSky:
		help = dimStyle.Render("j/k: focus | L: labels | ←/→: night | r: refresh | q: quit")
	default:
		help = dimStyle.Render("↑↓: select | ←/→: night | t: tonight | r: refresh | tab: view | q: quit")
	}

	return "  " + status + "  " + dimStyle.Render("|") + "  " + help
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

// dayOf truncates t to the start of its calendar day.
func dayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
