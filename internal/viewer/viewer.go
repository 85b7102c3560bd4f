// Package viewer implements the temperature log browser TUI with time
// scrubbing, navigation across rotated log files, and sparkline windows.
package viewer

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/hotcpu/internal/chart"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/store"
	"github.com/luki/hotcpu/internal/tier"
)

// statColumns are the aggregate columns a CSV log may carry after the
// sensor columns.
var statColumns = map[string]bool{"Average": true, "Min": true, "Max": true}

const statsGroup = "Statistics"

// ErrNoLog is returned by Run when neither the log nor a backup exists.
var ErrNoLog = errors.New("no temperature log")

// Options select the log and how it is colored.
type Options struct {
	Path       string
	Palette    chart.Palette
	Thresholds tier.Thresholds
}

// Run launches the log browser over the CSV log at opts.Path and its
// rotated backups.
func Run(opts Options) error {
	files, err := store.ListLogs(opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w at %s", ErrNoLog, opts.Path)
	}
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w at %s", ErrNoLog, opts.Path)
	}

	p := tea.NewProgram(
		initModel(files, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorChipName = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorAccent   = lipgloss.Color("214")
)

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	files   []string // current log first, then backups newest first
	fileIdx int
	opts    Options
	samples int
	columns []string // column names in first-seen order
	cursor  int      // time cursor position
	scroll  int      // vertical scroll offset
	width   int
	height  int
	err     error

	timeSlots []time.Time              // unique timestamps (sorted)
	series    map[string][]chart.Point // column -> sorted data points
}

func initModel(files []string, opts Options) model {
	if opts.Palette == (chart.Palette{}) {
		opts.Palette = chart.DefaultPalette
	}
	if opts.Thresholds == (tier.Thresholds{}) {
		opts.Thresholds = tier.Default()
	}
	m := model{files: files, opts: opts}
	m.loadFile()
	return m
}

func (m *model) loadFile() {
	samples, err := store.LoadFile(m.files[m.fileIdx])
	m.err = err
	if err != nil && len(samples) == 0 {
		m.samples = 0
		m.columns = nil
		m.timeSlots = nil
		m.series = nil
		return
	}
	m.load(samples)
}

func (m *model) load(samples []store.Sample) {
	timeSet := make(map[int64]time.Time)
	seriesMap := make(map[string][]chart.Point)
	var columns []string

	for _, s := range samples {
		if _, seen := seriesMap[s.Column]; !seen {
			columns = append(columns, s.Column)
		}
		timeSet[s.Time.Unix()] = s.Time
		seriesMap[s.Column] = append(seriesMap[s.Column], chart.Point{Temp: s.Temp, Time: s.Time})
	}

	times := make([]time.Time, 0, len(timeSet))
	for _, t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for k, pts := range seriesMap {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
		seriesMap[k] = pts
	}

	m.samples = len(samples)
	m.columns = columns
	m.timeSlots = times
	m.series = seriesMap
	m.cursor = 0
	if len(times) > 0 {
		m.cursor = len(times) - 1
	}
	m.scroll = 0
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.timeSlots)-1 {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor -= 60
			if m.cursor < 0 {
				m.cursor = 0
			}
		case "shift+right", "L":
			m.cursor += 60
			if m.cursor >= len(m.timeSlots) {
				m.cursor = len(m.timeSlots) - 1
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.timeSlots) > 0 {
				m.cursor = len(m.timeSlots) - 1
			}

		case "[":
			if m.fileIdx < len(m.files)-1 {
				m.fileIdx++
				m.loadFile()
			}
		case "]":
			if m.fileIdx > 0 {
				m.fileIdx--
				m.loadFile()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(m.opts.Palette.Critical).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.timeSlots) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No data in this log.")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanels(contentWidth)...)
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

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HOTCPU LOG")

	fileText := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(baseName(m.files[m.fileIdx]))

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.fileIdx+1, len(m.files)))

	dataInfo := ""
	if len(m.timeSlots) > 0 {
		first := m.timeSlots[0].Format("01-02 15:04:05")
		last := m.timeSlots[len(m.timeSlots)-1].Format("01-02 15:04:05")
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d samples, %d columns)",
				first, last, m.samples, len(m.columns)))
	}

	right := fileText + nav + dataInfo

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

func (m model) renderCursorInfo(width int) string {
	if m.cursor < 0 || m.cursor >= len(m.timeSlots) {
		return ""
	}

	t := m.timeSlots[m.cursor]
	ts := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(t.Format("15:04:05"))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.timeSlots)))

	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + m.renderScrubber(barWidth))
}

func (m model) renderScrubber(width int) string {
	if len(m.timeSlots) == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if len(m.timeSlots) > 1 {
		pos = m.cursor * (width - 1) / (len(m.timeSlots) - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		slotIdx := 0
		if len(m.timeSlots) > 1 && width > 1 {
			slotIdx = i * (len(m.timeSlots) - 1) / (width - 1)
		}
		if slotIdx > 0 && slotIdx < len(m.timeSlots) &&
			m.timeSlots[slotIdx].Hour() != m.timeSlots[slotIdx-1].Hour() {
			sb.WriteString(tickS.Render("│"))
			continue
		}
		sb.WriteString(dimS.Render("─"))
	}

	return sb.String()
}

type columnGroup struct {
	title   string
	columns []string
}

// groupColumns groups sensor columns by the device part of their id and
// puts the aggregate columns last.
func groupColumns(columns []string) []columnGroup {
	index := make(map[string]int)
	var groups []columnGroup
	var stats []string

	for _, c := range columns {
		if statColumns[c] {
			stats = append(stats, c)
			continue
		}
		device := c
		if i := strings.IndexByte(c, '/'); i > 0 {
			device = c[:i]
		}
		i, ok := index[device]
		if !ok {
			i = len(groups)
			index[device] = i
			groups = append(groups, columnGroup{title: deviceTitle(device)})
		}
		groups[i].columns = append(groups[i].columns, c)
	}
	if len(stats) > 0 {
		groups = append(groups, columnGroup{title: statsGroup, columns: stats})
	}
	return groups
}

func deviceTitle(device string) string {
	if name, cat := sensor.Identify(device); cat != sensor.Other {
		return name
	}
	return device
}

func columnLabel(column string) string {
	if i := strings.IndexByte(column, '/'); i > 0 && i < len(column)-1 {
		return column[i+1:]
	}
	return column
}

func (m model) renderPanels(totalWidth int) []string {
	if m.cursor < 0 || m.cursor >= len(m.timeSlots) {
		return nil
	}

	cursorTime := m.timeSlots[m.cursor]
	p := m.opts.Palette
	th := m.opts.Thresholds

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

	labelW := 16
	tempW := 8

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string

	for _, g := range groupColumns(m.columns) {
		var rows []string

		rows = append(rows, lipgloss.NewStyle().
			Bold(true).
			Foreground(colorChipName).
			Render(g.title))

		colLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(labelW).Render("sensor")
		colVal := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(tempW).Align(lipgloss.Right).Render("value")
		colHistPad := strings.Repeat(" ", chartWidth/2-3)
		colHist := lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(colHistPad + "history")
		rows = append(rows, colLabel+" "+colVal+"  "+colHist)

		rows = append(rows, lipgloss.NewStyle().
			Foreground(lipgloss.Color("237")).
			Render(strings.Repeat("─", innerWidth)))

		for _, column := range g.columns {
			pts := m.series[column]
			if len(pts) == 0 {
				continue
			}

			curTemp := findTempAtTime(pts, cursorTime)

			minV, maxV, avg := math.MaxFloat64, -math.MaxFloat64, 0.0
			values := make([]float64, len(pts))
			for i, pt := range pts {
				values[i] = pt.Temp
				minV = math.Min(minV, pt.Temp)
				maxV = math.Max(maxV, pt.Temp)
				avg += pt.Temp
			}
			avg /= float64(len(pts))
			rangeMin, rangeMax := chart.Range(values)

			sparkPts := buildSparkWindow(pts, m.cursor, chartWidth, m.timeSlots)

			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Bold(true).
				Width(labelW).
				Render(truncate(columnLabel(column), labelW))

			temp := lipgloss.NewStyle().
				Width(tempW).
				Align(lipgloss.Right).
				Render(p.RenderTempValue(curTemp, th))

			spark := p.RenderSparklinePoints(sparkPts, chartWidth, rangeMin, rangeMax, th)

			stats := dimS.Render("avg") + valS.Render(fmt.Sprintf("%5.1f", avg)) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", minV)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", maxV))

			rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+" "+stats)

			timeline := chart.RenderTimeline(sparkPts, chartWidth)
			if strings.TrimSpace(timeline) != "" {
				pad := strings.Repeat(" ", labelW+tempW+2)
				rows = append(rows, pad+" "+timeline)
			}
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

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 60") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":file") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

func findTempAtTime(pts []chart.Point, t time.Time) float64 {
	best := pts[0].Temp
	bestDiff := absDuration(pts[0].Time.Sub(t))
	for _, p := range pts {
		diff := absDuration(p.Time.Sub(t))
		if diff < bestDiff {
			bestDiff = diff
			best = p.Temp
		}
		if p.Time.After(t) && diff > bestDiff {
			break
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// buildSparkWindow returns the points of one column inside the width slots
// ending at the cursor.
func buildSparkWindow(pts []chart.Point, cursorIdx int, width int, timeSlots []time.Time) []chart.Point {
	if len(pts) == 0 || len(timeSlots) == 0 {
		return nil
	}

	tempMap := make(map[int64]float64, len(pts))
	for _, p := range pts {
		tempMap[p.Time.Unix()] = p.Temp
	}

	var result []chart.Point
	for i := width - 1; i >= 0; i-- {
		slotIdx := cursorIdx - i
		if slotIdx < 0 || slotIdx >= len(timeSlots) {
			continue
		}
		t := timeSlots[slotIdx]
		if temp, ok := tempMap[t.Unix()]; ok {
			result = append(result, chart.Point{Temp: temp, Time: t})
		}
	}
	return result
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
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
