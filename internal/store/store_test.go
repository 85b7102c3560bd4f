package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/tier"
)

func testSnapshot(pkg, gpu float64) *sensor.Snapshot {
	return &sensor.Snapshot{
		Temperature: pkg,
		Name:        "AMD Ryzen 7 5800X",
		Thresholds:  tier.Default(),
		Groups: []sensor.Group{
			{Name: "AMD Ryzen 7 5800X", Category: sensor.CPU, Sensors: []sensor.Reading{
				{ID: "cpu0/package", Name: "Package", Temp: pkg},
				{ID: "cpu0/core0", Name: "Core 0", Temp: pkg - 4},
			}},
			{Name: "NVIDIA GeForce RTX 3080", Category: sensor.GPU, Sensors: []sensor.Reading{
				{ID: "nvsmi/0/GPU Core", Name: "Core", Temp: gpu},
			}},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestTempLogCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "temps.csv")
	l, err := NewTempLog(Options{
		Path:      path,
		Format:    CSV,
		SensorIDs: []string{"cpu0/package", "nvsmi/0/GPU Core"},
		Average:   true,
		Max:       true,
	})
	if err != nil {
		t.Fatalf("NewTempLog: %v", err)
	}
	defer l.Close()

	t0 := time.Date(2026, 2, 21, 14, 30, 0, 0, time.Local)
	if err := l.Write(testSnapshot(68, 81), t0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := l.Write(testSnapshot(70, 79), t0.Add(5*time.Second)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, path)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "time,cpu0/package,nvsmi/0/GPU Core,Average,Max" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2026-02-21 14:30:00,68.0,81.0,74.5,81.0" {
		t.Errorf("row = %q", lines[1])
	}

	samples, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(samples) != 8 {
		t.Fatalf("got %d samples, want 8", len(samples))
	}
	if s := samples[4]; s.Column != "cpu0/package" || s.Temp != 70 || !s.Time.Equal(t0.Add(5*time.Second)) {
		t.Errorf("sample 4 = %+v", s)
	}
}

func TestTempLogCSVHeaderOnSelectionChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	l, err := NewTempLog(Options{Path: path, SensorIDs: []string{"cpu0/package"}})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	t0 := time.Date(2026, 2, 21, 9, 0, 0, 0, time.Local)
	l.Write(testSnapshot(60, 70), t0)
	l.Update(Options{SensorIDs: []string{"cpu0/package", "cpu0/core0"}})
	l.Write(testSnapshot(61, 70), t0.Add(time.Second))

	got := readFile(t, path)
	if n := strings.Count(got, "time,"); n != 2 {
		t.Errorf("header written %d times, want 2:\n%s", n, got)
	}

	samples, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if last := samples[len(samples)-1]; last.Column != "cpu0/core0" || last.Temp != 57 {
		t.Errorf("last sample = %+v", last)
	}
}

func TestTempLogJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.json")
	l, err := NewTempLog(Options{Path: path, Format: JSON, SensorIDs: []string{"cpu0/package"}, Min: true})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Write(testSnapshot(65, 70), time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Timestamp string         `json:"timestamp"`
		Sensors   []sensor.Entry `json:"sensors"`
		Average   *float64       `json:"average"`
		Min       *float64       `json:"min"`
	}
	if err := json.Unmarshal([]byte(readFile(t, path)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Timestamp != "2026-03-01 08:00:00" || len(got.Sensors) != 1 || got.Sensors[0].Temp != 65 {
		t.Errorf("entry = %+v", got)
	}
	if got.Average != nil || got.Min == nil || *got.Min != 65 {
		t.Errorf("stats = avg %v min %v", got.Average, got.Min)
	}
}

func TestTempLogTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.txt")
	l, err := NewTempLog(Options{Path: path, Format: TXT, SensorIDs: []string{"cpu0/package", "nvsmi/0/GPU Core"}, Max: true})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Write(testSnapshot(72, 81), time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local))
	want := "[2026-03-01 08:00:00] Package: 72.0°C, Core: 81.0°C, Max: 81.0°C\n"
	if got := readFile(t, path); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTempLogSkipsEmptySelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	l, err := NewTempLog(Options{Path: path, SensorIDs: []string{"gone/sensor"}})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Write(testSnapshot(50, 50), time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("log file created for an empty selection: %v", err)
	}
}

func TestTempLogRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.txt")
	l, err := NewTempLog(Options{Path: path, Format: TXT, SensorIDs: []string{"cpu0/package"}})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond, func() *sensor.Snapshot { return testSnapshot(55, 60) })
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, _ := os.ReadFile(path); strings.Count(string(data), "\n") >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if n := strings.Count(readFile(t, path), "Package: 55.0°C"); n < 2 {
		t.Errorf("got %d entries, want at least 2", n)
	}
}

func TestTempLogRunStopsAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	l, err := NewTempLog(Options{Path: path, Format: CSV, SensorIDs: []string{"cpu0/package"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		l.Run(context.Background(), time.Millisecond, func() *sensor.Snapshot { return testSnapshot(55, 60) })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept going after Close")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": CSV, " Json ": JSON, "TXT": TXT} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"temps.csv",
		"temps-2026-01-01T10-00-00.000.csv",
		"temps-2026-02-01T10-00-00.000.csv",
		"other.csv",
	} {
		os.WriteFile(filepath.Join(dir, name), []byte("time\n"), 0o644)
	}

	logs, err := ListLogs(filepath.Join(dir, "temps.csv"))
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	want := []string{"temps.csv", "temps-2026-02-01T10-00-00.000.csv", "temps-2026-01-01T10-00-00.000.csv"}
	if len(logs) != len(want) {
		t.Fatalf("ListLogs = %v", logs)
	}
	for i, w := range want {
		if filepath.Base(logs[i]) != w {
			t.Errorf("logs[%d] = %s, want %s", i, filepath.Base(logs[i]), w)
		}
	}
}

func TestTempLogCSVHeaderAfterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	l, err := NewTempLog(Options{
		Path:      path,
		Format:    CSV,
		SensorIDs: []string{"cpu0/package", "nvsmi/0/GPU Core"},
		Average:   true,
		MaxSizeMB: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	t0 := time.Date(2026, 2, 21, 14, 30, 0, 0, time.Local)
	var logs []string
	for i := 0; i < 100000 && len(logs) < 2; i++ {
		if err := l.Write(testSnapshot(60+float64(i%20), 70), t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
		if i%1000 == 999 {
			if logs, err = ListLogs(path); err != nil {
				t.Fatal(err)
			}
		}
	}
	if len(logs) < 2 {
		t.Fatalf("log never rotated: %v", logs)
	}
	// A few more rows land in the rotated-in file.
	for i := 0; i < 3; i++ {
		if err := l.Write(testSnapshot(50, 55), t0.Add(-time.Duration(i+1)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	for _, file := range logs {
		data := readFile(t, file)
		if !strings.HasPrefix(data, "time,") {
			t.Errorf("%s does not start with a header: %q", filepath.Base(file), strings.SplitN(data, "\n", 2)[0])
		}
		samples, err := LoadFile(file)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", file, err)
		}
		if len(samples) == 0 {
			t.Errorf("LoadFile(%s) returned no samples", filepath.Base(file))
		}
	}
}

func TestTempLogWriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.csv")
	l, err := NewTempLog(Options{Path: path, Format: CSV, SensorIDs: []string{"cpu0/package"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Write(testSnapshot(55, 60), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Write(testSnapshot(56, 60), time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if n := strings.Count(readFile(t, path), "\n"); n != 2 {
		t.Errorf("got %d lines, want header + 1 row", n)
	}
}
