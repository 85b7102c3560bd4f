// Package monitor implements the live temperature monitoring TUI using
// BubbleTea, fed by poll-loop snapshots, with sparkline charts colored by
// temperature tier.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/hotcpu/internal/chart"
	"github.com/luki/hotcpu/internal/poller"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/tier"
)

const (
	intervalStep = 250 * time.Millisecond
	minInterval  = 250 * time.Millisecond
	maxInterval  = 10 * time.Second
)

// Loop is the part of the poll loop the monitor drives.
type Loop interface {
	Start() error
	Stop() error
	Subscribe(fn poller.Subscriber)
	SetInterval(d time.Duration) error
	Interval() time.Duration
}

// Options tune what the monitor shows.
type Options struct {
	Hidden     []string      // sensor ids to leave out
	Palette    chart.Palette // tier colors
	Recording  string        // temperature log path, shown when non-empty
	OnInterval func(time.Duration)
}

// ── Messages ─────────────────────────────────────────────────────────

type snapshotMsg struct{ snap *sensor.Snapshot }

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor.
type Model struct {
	loop      Loop
	opts      Options
	snap      *sensor.Snapshot
	err       error
	width     int
	height    int
	scroll    int
	startTime time.Time
	paused    bool
}

// New creates the initial model for the live monitor.
func New(loop Loop, opts Options) Model {
	if opts.Palette == (chart.Palette{}) {
		opts.Palette = chart.DefaultPalette
	}
	return Model{
		loop:      loop,
		opts:      opts,
		startTime: time.Now(),
	}
}

// Run subscribes the TUI to loop, starts polling and blocks until the user
// quits. The loop is stopped on return.
func Run(loop Loop, opts Options) error {
	p := tea.NewProgram(New(loop, opts), tea.WithAltScreen())
	loop.Subscribe(Forward(p))

	_, err := p.Run()
	if stopErr := loop.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// Forward returns a subscriber that hands snapshots to the program's event
// loop.
func Forward(p *tea.Program) poller.Subscriber {
	return func(s *sensor.Snapshot) {
		p.Send(snapshotMsg{snap: s})
	}
}

// ── Init / Update ────────────────────────────────────────────────────

// Init starts the poll loop once the program is accepting messages.
func (m Model) Init() tea.Cmd {
	loop := m.loop
	return func() tea.Msg {
		if err := loop.Start(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			m.changeInterval(intervalStep)
		case "-", "_":
			m.changeInterval(-intervalStep)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		if !m.paused {
			m.snap = msg.snap
		}

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

func (m *Model) changeInterval(delta time.Duration) {
	d := m.loop.Interval() + delta
	if d < minInterval {
		d = minInterval
	}
	if d > maxInterval {
		d = maxInterval
	}
	if err := m.loop.SetInterval(d); err != nil {
		m.err = err
		return
	}
	if m.opts.OnInterval != nil {
		m.opts.OnInterval(d)
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorChipName = lipgloss.Color("147")
	colorAdapter  = lipgloss.Color("243")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if alert := m.renderAlert(contentWidth); alert != "" {
		sections = append(sections, alert)
	}

	if scale := m.renderScale(contentWidth); scale != "" {
		sections = append(sections, scale)
	}

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(m.opts.Palette.Critical).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	groups := m.visibleGroups()
	if len(groups) == 0 {
		text := "Waiting for sensor data..."
		if m.snap != nil && m.snap.Degraded() {
			text = m.snap.Name
		}
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render(text)
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderPanels(groups, contentWidth)...)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) visibleGroups() []sensor.Group {
	if m.snap == nil {
		return nil
	}
	return m.snap.Visible(m.opts.Hidden)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HOTCPU")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	var statusParts []string

	if m.snap != nil && !m.snap.Degraded() && !m.snap.Time.IsZero() {
		t := m.snap.Tier()
		main := lipgloss.NewStyle().
			Foreground(m.opts.Palette.Color(t)).
			Bold(true).
			Render(m.snap.Summary())
		statusParts = append(statusParts, main, dimS.Render(t.String()))
	}

	statusParts = append(statusParts, dimS.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))
	statusParts = append(statusParts, dimS.Render("every "+m.loop.Interval().String()))

	if m.snap != nil && !m.snap.Time.IsZero() {
		statusParts = append(statusParts, dimS.Render(m.snap.Time.Format("15:04:05")))
	}

	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED"))
	}

	if m.opts.Recording != "" {
		rec := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render("REC") +
			dimS.Render(" "+m.opts.Recording)
		statusParts = append(statusParts, rec)
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

// renderAlert shows a banner while the main temperature is critical.
func (m Model) renderAlert(width int) string {
	if m.snap == nil || m.snap.Degraded() || m.snap.Tier() != tier.Critical {
		return ""
	}
	return lipgloss.NewStyle().
		Background(m.opts.Palette.Critical).
		Foreground(lipgloss.Color("231")).
		Bold(true).
		Width(width).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("CRITICAL TEMPERATURE  %s %d°C", m.snap.Name, m.snap.Rounded()))
}

// renderScale places the main temperature on a 0 to critical+10 scale with
// the threshold marks.
func (m Model) renderScale(width int) string {
	if m.snap == nil || m.snap.Degraded() || m.snap.Time.IsZero() {
		return ""
	}
	th := m.snap.Thresholds
	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Width(18).
		Render(truncate(m.snap.Name, 18))
	temp := lipgloss.NewStyle().
		Width(7).
		Align(lipgloss.Right).
		Render(m.opts.Palette.RenderTempValue(m.snap.Temperature, th))
	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	bar := m.opts.Palette.RenderThresholdScale(m.snap.Temperature, 0, th.Critical+10, th, barWidth)
	return lipgloss.NewStyle().Padding(0, 1).Render(label + " " + temp + "  " + bar)
}

func (m Model) renderPanels(groups []sensor.Group, totalWidth int) []string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	chartWidth := innerWidth - 60
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 18
	tempW := 7

	p := m.opts.Palette
	th := m.snap.Thresholds
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string

	for _, g := range groups {
		var rows []string

		name := lipgloss.NewStyle().
			Bold(true).
			Foreground(colorChipName).
			Render(g.Glyph + " " + g.Name)
		src := lipgloss.NewStyle().
			Foreground(colorAdapter).
			Render(g.Source)
		rows = append(rows, name+"  "+src)

		for _, r := range g.Sorted() {
			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Width(labelW).
				Render(truncate(r.Name, labelW))

			temp := lipgloss.NewStyle().
				Width(tempW).
				Align(lipgloss.Right).
				Render(p.RenderTempValue(r.Temp, th))

			rangeMin, rangeMax := chart.Range(r.History)
			spark := p.RenderSparkline(r.History, chartWidth, rangeMin, rangeMax, th)

			stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", avg(r.History))) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", r.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", r.Peak))

			rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+stats)
		}

		panels = append(panels, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	}

	return panels
}

func (m Model) renderFooter(width int) string {
	p := m.opts.Palette
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	swatch := func(t tier.Tier) string {
		return lipgloss.NewStyle().Foreground(p.Color(t)).Render("██")
	}

	th := tier.Default()
	if m.snap != nil {
		th = m.snap.Thresholds
	}
	legend := swatch(tier.Cool) + dimS.Render(" cool ") +
		swatch(tier.Warm) + dimS.Render(fmt.Sprintf(" %.0f ", th.Warm)) +
		swatch(tier.Hot) + dimS.Render(fmt.Sprintf(" %.0f ", th.Hot)) +
		swatch(tier.Critical) + dimS.Render(fmt.Sprintf(" %.0f", th.Critical))

	key := func(k, desc string) string {
		return dimS.Render("  "+k) + lipgloss.NewStyle().Foreground(colorLabel).Render(":"+desc)
	}
	keys := key("q", "quit") + key("j/k", "scroll") + key("p", "pause") + key("+/-", "interval")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
