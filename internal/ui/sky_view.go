package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/report"
	"github.com/litescript/ls-skywatch/internal/state"
)

const (
	// Field of view in degrees
	fovAz = 120.0
	fovEl = 60.0

	animDuration  = 400 * time.Millisecond
	animFrameRate = 30 * time.Millisecond

	colorFocused = "229" // bright gold
	colorLabel   = "#d0c8ff"
)

var kindGlyphs = map[catalog.Kind]rune{
	catalog.KindDeepSky:   '✶',
	catalog.KindPlanet:    '●',
	catalog.KindMoon:      '☾',
	catalog.KindSatellite: '✦',
}

// LabelMode controls how object labels are displayed.
type LabelMode int

const (
	LabelNone    LabelMode = iota
	LabelFocused           // only the focused object
	LabelAll
)

type skyAnimMsg time.Time

// skyObject is an object with a current position, as drawn on the dome.
type skyObject struct {
	name   string
	kind   catalog.Kind
	status catalog.Status
	altDeg float64
	azDeg  float64
}

// SkyViewModel renders the sky above the observer's horizon.
type SkyViewModel struct {
	width  int
	height int

	// Camera position (center of view)
	camAz float64
	camEl float64

	animating   bool
	animStartAz float64
	animStartEl float64
	animTargAz  float64
	animTargEl  float64
	animStart   time.Time

	focusIdx int
	objects  []skyObject // above the horizon, highest first

	labelMode LabelMode
}

// NewSkyViewModel creates a sky view looking south.
func NewSkyViewModel() SkyViewModel {
	return SkyViewModel{
		camAz:     180,
		camEl:     30,
		labelMode: LabelAll,
	}
}

// SetSize updates the viewport size.
func (m SkyViewModel) SetSize(width, height int) SkyViewModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData rebuilds the plotted objects, keeping focus on the same object
// while it stays up.
func (m SkyViewModel) UpdateData(snapshot state.Snapshot) SkyViewModel {
	focused := m.focusedName()

	var objs []skyObject
	for _, o := range snapshot.Session.Objects {
		if o.Ephemeris == nil || o.Ephemeris.Current == nil || o.Ephemeris.Current.AltDeg <= 0 {
			continue
		}
		objs = append(objs, skyObject{
			name:   o.Name,
			kind:   o.Kind,
			status: o.Status,
			altDeg: o.Ephemeris.Current.AltDeg,
			azDeg:  o.Ephemeris.Current.AzDeg,
		})
	}
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].altDeg > objs[j].altDeg })
	m.objects = objs

	m.focusIdx = 0
	for i, o := range m.objects {
		if o.name == focused {
			m.focusIdx = i
			break
		}
	}

	if !m.animating && len(m.objects) > 0 {
		m.camAz, m.camEl = m.target(m.objects[m.focusIdx])
	}
	return m
}

// FocusObject points the camera at the named object if it is up.
func (m SkyViewModel) FocusObject(name string) SkyViewModel {
	for i, o := range m.objects {
		if o.name == name {
			m.focusIdx = i
			m.camAz, m.camEl = m.target(o)
			m.animating = false
			break
		}
	}
	return m
}

func (m SkyViewModel) focusedName() string {
	if m.focusIdx < len(m.objects) {
		return m.objects[m.focusIdx].name
	}
	return ""
}

// target returns the camera position that frames o. The camera never tilts
// below half the vertical field so the horizon stays in view.
func (m SkyViewModel) target(o skyObject) (az, el float64) {
	el = o.altDeg
	if el < fovEl/2 {
		el = fovEl / 2
	}
	if el > 90-fovEl/2 {
		el = 90 - fovEl/2
	}
	return o.azDeg, el
}

func skyAnimTick() tea.Cmd {
	return tea.Tick(animFrameRate, func(t time.Time) tea.Msg {
		return skyAnimMsg(t)
	})
}

// Update handles messages.
func (m SkyViewModel) Update(msg tea.Msg) (SkyViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			return m.focusPrev()
		case "down", "j":
			return m.focusNext()
		case "L":
			m.labelMode = (m.labelMode + 1) % 3
		}

	case skyAnimMsg:
		if m.animating {
			return m.updateAnimation(time.Time(msg))
		}
	}

	return m, nil
}

func (m SkyViewModel) focusNext() (SkyViewModel, tea.Cmd) {
	if len(m.objects) == 0 {
		return m, nil
	}
	m.focusIdx = (m.focusIdx + 1) % len(m.objects)
	return m.startAnimation()
}

func (m SkyViewModel) focusPrev() (SkyViewModel, tea.Cmd) {
	if len(m.objects) == 0 {
		return m, nil
	}
	m.focusIdx--
	if m.focusIdx < 0 {
		m.focusIdx = len(m.objects) - 1
	}
	return m.startAnimation()
}

func (m SkyViewModel) startAnimation() (SkyViewModel, tea.Cmd) {
	if m.focusIdx >= len(m.objects) {
		return m, nil
	}

	m.animating = true
	m.animStartAz = m.camAz
	m.animStartEl = m.camEl
	m.animTargAz, m.animTargEl = m.target(m.objects[m.focusIdx])
	m.animStart = time.Now()

	return m, skyAnimTick()
}

func (m SkyViewModel) updateAnimation(now time.Time) (SkyViewModel, tea.Cmd) {
	t := float64(now.Sub(m.animStart)) / float64(animDuration)

	if t >= 1.0 {
		m.animating = false
		m.camAz = math.Mod(m.animTargAz+360, 360)
		m.camEl = m.animTargEl
		return m, nil
	}

	// Ease-out cubic
	t = 1 - math.Pow(1-t, 3)

	m.camAz = lerpAngle(m.animStartAz, m.animTargAz, t)
	m.camEl = lerp(m.animStartEl, m.animTargEl, t)

	return m, skyAnimTick()
}

// View renders the sky view.
func (m SkyViewModel) View() string {
	if m.width < 20 || m.height < 10 {
		return "Sky view requires larger terminal"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSkyCanvas(m.width, m.height-3))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m SkyViewModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135")).Render("Sky")
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var labels string
	switch m.labelMode {
	case LabelNone:
		labels = "Labels: off"
	case LabelFocused:
		labels = "Labels: focus"
	case LabelAll:
		labels = "Labels: all"
	}

	return fmt.Sprintf("%s | %s | %s | %s", title,
		dim.Render(fmt.Sprintf("%d objects up", len(m.objects))),
		dim.Render(labels),
		dim.Render(fmt.Sprintf("Az:%.0f° El:%.0f°", math.Mod(m.camAz+360, 360), m.camEl)))
}

func (m SkyViewModel) renderStatus() string {
	if len(m.objects) == 0 {
		return "Nothing above the horizon"
	}
	o := m.objects[m.focusIdx]
	line := fmt.Sprintf(">>> %s | Alt:%.1f° Az:%.0f° %s | %s",
		o.name, o.altDeg, o.azDeg, report.CompassPoint(o.azDeg), o.status)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(colorFocused)).Render(line)
}

// objectPos tracks a drawn object for label placement.
type objectPos struct {
	x, y       int
	name       string
	isFocused  bool
	labelStart int
	labelEnd   int
}

func (m SkyViewModel) renderSkyCanvas(width, height int) string {
	canvas := make([][]rune, height)
	colors := make([][]lipgloss.Color, height)
	for y := 0; y < height; y++ {
		canvas[y] = make([]rune, width)
		colors[y] = make([]lipgloss.Color, width)
		for x := 0; x < width; x++ {
			canvas[y][x] = ' '
			colors[y][x] = "236"
		}
	}

	horizonY := height - 1
	for x := 0; x < width; x++ {
		canvas[horizonY][x] = '─'
		colors[horizonY][x] = "60"
	}
	for az := 0.0; az < 360; az += 45 {
		m.drawCardinal(canvas, colors, width, height, report.CompassPoint(az), az)
	}

	var positions []objectPos
	for i, o := range m.objects {
		x, y, visible := m.projectToScreen(o.azDeg, o.altDeg, width, height)
		if !visible || x < 0 || x >= width || y < 0 || y >= horizonY {
			continue
		}

		isFocused := i == m.focusIdx
		glyph, ok := kindGlyphs[o.kind]
		if !ok {
			glyph = '·'
		}
		color := statusColors[o.status]
		if isFocused {
			glyph = '◆'
			color = colorFocused
		}
		canvas[y][x] = glyph
		colors[y][x] = color

		positions = append(positions, objectPos{x: x, y: y, name: o.name, isFocused: isFocused})
	}

	m.renderLabels(canvas, colors, width, horizonY, positions)

	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			style := lipgloss.NewStyle().Foreground(colors[y][x])
			b.WriteString(style.Render(string(canvas[y][x])))
		}
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderLabels draws object labels. Focused labels win where labels overlap.
func (m SkyViewModel) renderLabels(canvas [][]rune, colors [][]lipgloss.Color, width, horizonY int, positions []objectPos) {
	if m.labelMode == LabelNone || len(positions) == 0 {
		return
	}

	for i := range positions {
		pos := &positions[i]
		pos.labelStart = pos.x + 2
		n := len([]rune(pos.name))
		if pos.isFocused {
			n += 2
		}
		pos.labelEnd = pos.labelStart + n
	}

	focusedClaims := make(map[int]map[int]bool) // y -> x -> claimed
	for _, pos := range positions {
		if !pos.isFocused {
			continue
		}
		if focusedClaims[pos.y] == nil {
			focusedClaims[pos.y] = make(map[int]bool)
		}
		for x := pos.labelStart; x < pos.labelEnd; x++ {
			focusedClaims[pos.y][x] = true
		}
	}

	for _, pos := range positions {
		if m.labelMode == LabelFocused && !pos.isFocused {
			continue
		}

		labelColor := lipgloss.Color(colorLabel)
		text := pos.name
		if pos.isFocused {
			labelColor = colorFocused
			text = "◄ " + pos.name
		}

		for i, r := range []rune(text) {
			x := pos.labelStart + i
			if x < 0 || x >= width || pos.y < 0 || pos.y >= horizonY {
				continue
			}
			if !pos.isFocused && focusedClaims[pos.y][x] {
				continue
			}
			canvas[pos.y][x] = r
			colors[pos.y][x] = labelColor
		}
	}
}

func (m SkyViewModel) drawCardinal(canvas [][]rune, colors [][]lipgloss.Color, width, height int, label string, az float64) {
	x, _, visible := m.projectToScreen(az, m.camEl, width, height)
	if !visible {
		return
	}
	y := height - 1
	for i, r := range label {
		if x+i >= 0 && x+i < width {
			canvas[y][x+i] = r
			colors[y][x+i] = "252"
		}
	}
}

// projectToScreen converts alt/az to screen coordinates relative to the
// camera. The bottom row of the canvas is the horizon line.
func (m SkyViewModel) projectToScreen(az, el float64, width, height int) (int, int, bool) {
	dAz := normalizeAngle(az - m.camAz)
	dEl := el - m.camEl

	if dAz < -fovAz/2 || dAz > fovAz/2 {
		return 0, 0, false
	}
	if dEl < -fovEl/2 || dEl > fovEl/2 {
		return 0, 0, false
	}

	// X: -fovAz/2..+fovAz/2 -> 0..width
	// Y: +fovEl/2..-fovEl/2 -> 0..horizon (higher el = higher on screen)
	horizonY := height - 1

	x := int((dAz + fovAz/2) / fovAz * float64(width))
	y := int((fovEl/2 - dEl) / fovEl * float64(horizonY))

	return x, y, true
}

// normalizeAngle wraps angle to -180..+180 range
func normalizeAngle(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}

// lerpAngle interpolates between angles, taking shortest path
func lerpAngle(a, b, t float64) float64 {
	diff := normalizeAngle(b - a)
	return a + diff*t
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
