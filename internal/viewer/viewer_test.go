package viewer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/hotcpu/internal/chart"
)

func writeLog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "temperatures.csv")
	content := "time,coretemp-isa-0000/Package id 0,nvsmi/0/GPU Core,Average\n" +
		"2026-03-01 12:00:00,55.0,60.0,57.5\n" +
		"2026-03-01 12:00:05,65.0,70.0,67.5\n" +
		"2026-03-01 12:00:10,85.0,92.0,88.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGroupColumns(t *testing.T) {
	groups := groupColumns([]string{"coretemp-isa-0000/Package id 0", "Average", "nvsmi/0/GPU Core", "coretemp-isa-0000/Core 0", "Max"})
	if len(groups) != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].title != "CPU" || len(groups[0].columns) != 2 {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].title != "nvsmi" {
		t.Errorf("second group = %+v", groups[1])
	}
	if groups[2].title != statsGroup || len(groups[2].columns) != 2 {
		t.Errorf("stats group = %+v", groups[2])
	}
}

func TestColumnLabel(t *testing.T) {
	tests := map[string]string{
		"coretemp-isa-0000/Package id 0": "Package id 0",
		"nvsmi/0/GPU Core":               "0/GPU Core",
		"Average":                        "Average",
		"trailing/":                      "trailing/",
	}
	for in, want := range tests {
		if got := columnLabel(in); got != want {
			t.Errorf("columnLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModelLoadsLog(t *testing.T) {
	path := writeLog(t, t.TempDir())
	m := initModel([]string{path}, Options{Path: path})
	if m.err != nil {
		t.Fatal(m.err)
	}
	if len(m.timeSlots) != 3 || m.cursor != 2 || m.samples != 9 {
		t.Errorf("slots %d cursor %d samples %d", len(m.timeSlots), m.cursor, m.samples)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 80})
	m = next.(model)
	view := m.View()
	for _, want := range []string{"HOTCPU LOG", "temperatures.csv", "Package id 0", "Statistics", "12:00:10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	m = next.(model)
	if m.cursor != 1 {
		t.Errorf("cursor after h = %d", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyHome})
	m = next.(model)
	if m.cursor != 0 {
		t.Errorf("cursor after home = %d", m.cursor)
	}
}

func TestFindTempAtTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pts := []chart.Point{
		{Temp: 50, Time: base},
		{Temp: 60, Time: base.Add(10 * time.Second)},
		{Temp: 70, Time: base.Add(20 * time.Second)},
	}
	if got := findTempAtTime(pts, base.Add(9*time.Second)); got != 60 {
		t.Errorf("nearest = %.1f, want 60", got)
	}
	if got := findTempAtTime(pts, base.Add(time.Hour)); got != 70 {
		t.Errorf("after end = %.1f, want 70", got)
	}
}

func TestBuildSparkWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var slots []time.Time
	var pts []chart.Point
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		slots = append(slots, ts)
		if i%2 == 0 {
			pts = append(pts, chart.Point{Temp: float64(i), Time: ts})
		}
	}
	got := buildSparkWindow(pts, 9, 4, slots)
	// Slots 6..9; only 6 and 8 carry data.
	if len(got) != 2 || got[0].Temp != 6 || got[1].Temp != 8 {
		t.Errorf("window = %+v", got)
	}
}

func TestRunWithoutLog(t *testing.T) {
	err := Run(Options{Path: filepath.Join(t.TempDir(), "missing", "temperatures.csv")})
	if !errors.Is(err, ErrNoLog) {
		t.Errorf("Run() = %v, want ErrNoLog", err)
	}
}
