// Package chart provides sparkline rendering colored by temperature tier,
// with minute tick marks, timeline labels and threshold scale bars.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/hotcpu/internal/tier"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Point is one sample on a timeline. A zero Time disables tick marks.
type Point struct {
	Temp float64
	Time time.Time
}

// Palette maps each tier to a terminal color.
type Palette struct {
	Cool     lipgloss.Color
	Warm     lipgloss.Color
	Hot      lipgloss.Color
	Critical lipgloss.Color
}

// DefaultPalette suits dark terminals.
var DefaultPalette = Palette{
	Cool:     lipgloss.Color("78"),  // soft green
	Warm:     lipgloss.Color("220"), // yellow
	Hot:      lipgloss.Color("208"), // orange
	Critical: lipgloss.Color("196"), // red
}

// NewPalette builds a palette from color strings such as "#FFA500" or "208".
// Empty entries keep the default.
func NewPalette(cool, warm, hot, critical string) Palette {
	p := DefaultPalette
	set := func(dst *lipgloss.Color, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&p.Cool, cool)
	set(&p.Warm, warm)
	set(&p.Hot, hot)
	set(&p.Critical, critical)
	return p
}

// Color returns the color of a tier.
func (p Palette) Color(t tier.Tier) lipgloss.Color {
	switch t {
	case tier.Critical:
		return p.Critical
	case tier.Hot:
		return p.Hot
	case tier.Warm:
		return p.Warm
	default:
		return p.Cool
	}
}

// TempColor returns the color for a temperature under the given thresholds.
func (p Palette) TempColor(v float64, th tier.Thresholds) lipgloss.Color {
	return p.Color(tier.Classify(v, th))
}

func (p Palette) style(v float64, th tier.Thresholds) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(p.TempColor(v, th))
	if tier.Classify(v, th) == tier.Critical {
		style = style.Bold(true)
	}
	return style
}

// Range returns a display range around values with 5 degrees of headroom,
// never below zero.
func Range(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 100
	}
	minV, maxV := math.MaxFloat64, -math.MaxFloat64
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	return math.Max(0, minV-5), maxV + 5
}

// RenderSparkline renders a sparkline without timestamp ticks.
func (p Palette) RenderSparkline(values []float64, width int, rangeMin, rangeMax float64, th tier.Thresholds) string {
	if width <= 0 {
		return ""
	}
	pts := make([]Point, len(values))
	for i, v := range values {
		pts[i] = Point{Temp: v}
	}
	return p.RenderSparklinePoints(pts, width, rangeMin, rangeMax, th)
}

// RenderSparklinePoints renders a sparkline with minute tick marks on the
// timeline. A subtle pipe is drawn at each minute boundary.
func (p Palette) RenderSparklinePoints(points []Point, width int, rangeMin, rangeMax float64, th tier.Thresholds) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, pt := range points {
		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		norm := (pt.Temp - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}
		sb.WriteString(p.style(pt.Temp, th).Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func isMinuteTick(points []Point, i int) bool {
	pt := points[i]
	if pt.Time.IsZero() {
		return false
	}
	if pt.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && pt.Time.Minute() != points[i-1].Time.Minute()
}

// RenderTimeline renders the time labels under the sparkline, showing
// HH:MM at each minute tick position.
func RenderTimeline(points []Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick
	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderThresholdScale renders a scale bar showing the current position
// against the warm, hot and critical thresholds.
func (p Palette) RenderThresholdScale(current, rangeMin, rangeMax float64, th tier.Thresholds, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		return int(float64(width-1) * (v - rangeMin) / span)
	}

	marks := map[int]lipgloss.Color{}
	for _, m := range []struct {
		at float64
		t  tier.Tier
	}{{th.Warm, tier.Warm}, {th.Hot, tier.Hot}, {th.Critical, tier.Critical}} {
		if m.at <= rangeMin {
			continue
		}
		if i := pos(m.at); i >= 0 && i < width {
			marks[i] = p.Color(m.t)
		}
	}

	curPos := pos(current)
	if curPos < 0 {
		curPos = 0
	}
	if curPos >= width {
		curPos = width - 1
	}

	dot := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch color, marked := marks[i]; {
		case i == curPos:
			sb.WriteString(p.style(current, th).Bold(true).Render("◆"))
		case marked:
			sb.WriteString(lipgloss.NewStyle().Foreground(color).Render("▪"))
		default:
			sb.WriteString(dot.Render("·"))
		}
	}

	return sb.String()
}

// RenderTempValue renders the temperature value with its tier color.
func (p Palette) RenderTempValue(temp float64, th tier.Thresholds) string {
	return p.style(temp, th).Render(fmt.Sprintf("%5.1f°C", temp))
}
