package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/hotcpu/internal/tier"
)

func TestSparkline(t *testing.T) {
	values := []float64{30, 35, 40, 50, 60, 70, 80, 90, 100}
	result := DefaultPalette.RenderSparkline(values, 20, 20, 110, tier.Default())
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	if w := lipgloss.Width(result); w != 20 {
		t.Errorf("sparkline width = %d, want 20", w)
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineMinuteTicks(t *testing.T) {
	base := time.Date(2026, 2, 21, 14, 0, 50, 0, time.Local)
	var pts []Point
	for i := 0; i < 20; i++ {
		pts = append(pts, Point{
			Temp: float64(40 + i%5),
			Time: base.Add(time.Duration(i) * time.Second),
		})
	}

	result := DefaultPalette.RenderSparklinePoints(pts, 20, 30, 55, tier.Default())
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	if !strings.Contains(result, "│") {
		t.Error("expected minute tick mark in sparkline")
	}

	timeline := RenderTimeline(pts, 20)
	if !strings.Contains(timeline, "14:01") {
		t.Errorf("timeline %q missing 14:01 label", timeline)
	}
}

func TestPaletteColor(t *testing.T) {
	p := NewPalette("#FFFFFF", "", "#FF4500", " ")
	tests := []struct {
		tier tier.Tier
		want lipgloss.Color
	}{
		{tier.Cool, "#FFFFFF"},
		{tier.Warm, DefaultPalette.Warm},
		{tier.Hot, "#FF4500"},
		{tier.Critical, DefaultPalette.Critical},
	}
	for _, tt := range tests {
		if got := p.Color(tt.tier); got != tt.want {
			t.Errorf("Color(%s) = %q, want %q", tt.tier, got, tt.want)
		}
	}

	th := tier.Default()
	if got := p.TempColor(85, th); got != "#FF4500" {
		t.Errorf("TempColor(85) = %q, want the Hot color", got)
	}
}

func TestRange(t *testing.T) {
	lo, hi := Range([]float64{3, 40, 72})
	if lo != 0 || hi != 77 {
		t.Errorf("Range = %v..%v, want 0..77", lo, hi)
	}
	if lo, hi := Range(nil); lo != 0 || hi != 100 {
		t.Errorf("Range(nil) = %v..%v", lo, hi)
	}
}

func TestThresholdScale(t *testing.T) {
	scale := DefaultPalette.RenderThresholdScale(72, 20, 110, tier.Default(), 30)
	if w := lipgloss.Width(scale); w != 30 {
		t.Errorf("scale width = %d, want 30", w)
	}
	if strings.Count(scale, "◆") != 1 {
		t.Error("expected exactly one position marker")
	}
	if strings.Count(scale, "▪") != 3 {
		t.Errorf("expected three threshold marks in %q", scale)
	}
}

func TestRenderTempValue(t *testing.T) {
	if got := DefaultPalette.RenderTempValue(72.44, tier.Default()); !strings.Contains(got, " 72.4°C") {
		t.Errorf("RenderTempValue = %q", got)
	}
}
