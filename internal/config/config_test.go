package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luki/hotcpu/internal/tier"
)

func TestDefaults(t *testing.T) {
	s := Default()
	if s.Interval() != time.Second {
		t.Errorf("Interval() = %v, want 1s", s.Interval())
	}
	if s.Thresholds() != tier.Default() {
		t.Errorf("Thresholds() = %+v, want %+v", s.Thresholds(), tier.Default())
	}
	if s.LogFormat != "CSV" || s.LogInterval() != 5*time.Second {
		t.Errorf("log defaults = %q every %v", s.LogFormat, s.LogInterval())
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.RefreshIntervalMs != 1000 {
		t.Errorf("RefreshIntervalMs = %d, want 1000", s.RefreshIntervalMs)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := Default()
	s.RefreshIntervalMs = 2500
	s.SetThresholds(tier.Thresholds{Warm: 55, Hot: 75, Critical: 95})
	s.HiddenSensorIDs = []string{"acpi/TZ00"}
	s.LogEnabled = true
	s.LogFormat = "JSON"
	s.LogSensorIDs = []string{"cpu0/package", "nvsmi/0/GPU Core"}

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Interval() != 2500*time.Millisecond {
		t.Errorf("Interval() = %v", got.Interval())
	}
	if got.Thresholds() != (tier.Thresholds{Warm: 55, Hot: 75, Critical: 95}) {
		t.Errorf("Thresholds() = %+v", got.Thresholds())
	}
	if len(got.HiddenSensorIDs) != 1 || got.HiddenSensorIDs[0] != "acpi/TZ00" {
		t.Errorf("HiddenSensorIDs = %v", got.HiddenSensorIDs)
	}
	if !got.LogEnabled || got.LogFormat != "JSON" || len(got.LogSensorIDs) != 2 {
		t.Errorf("log settings = %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte(`{"hot_threshold": 85, "log_format": "txt"}`), 0o644)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HotThreshold != 85 || s.WarmThreshold != 60 || s.CriticalThreshold != 90 {
		t.Errorf("thresholds = %v/%v/%v", s.WarmThreshold, s.HotThreshold, s.CriticalThreshold)
	}
	if s.LogFormat != "TXT" {
		t.Errorf("LogFormat = %q, want TXT", s.LogFormat)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte(`{"refresh_interval_ms": "fast"`), 0o644)

	s, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed settings")
	}
	if s.RefreshIntervalMs != 1000 {
		t.Errorf("malformed file did not fall back to defaults: %+v", s)
	}
}

func TestNormalize(t *testing.T) {
	s := Settings{RefreshIntervalMs: 5, LogIntervalSeconds: 0, LogFormat: "xml"}
	s.Normalize()
	if s.RefreshIntervalMs != 100 || s.LogIntervalSeconds != 1 || s.LogFormat != "CSV" {
		t.Errorf("Normalize() = %+v", s)
	}
	if s.HiddenSensorIDs == nil || s.TraySensorIDs == nil || s.LogSensorIDs == nil {
		t.Error("Normalize left nil id lists")
	}
}

func TestFractionalThresholdsSurviveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	th := tier.Thresholds{Warm: 60.2, Hot: 60.4, Critical: 90}
	if err := th.Validate(); err != nil {
		t.Fatal(err)
	}

	s := Default()
	s.SetThresholds(th)
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Thresholds() != th {
		t.Errorf("Thresholds() = %+v, want %+v", got.Thresholds(), th)
	}
	if err := got.Thresholds().Validate(); err != nil {
		t.Error(err)
	}
}

func TestNormalizeThresholds(t *testing.T) {
	tests := []struct {
		name string
		in   tier.Thresholds
		want tier.Thresholds
	}{
		{"valid", tier.Thresholds{Warm: 50, Hot: 70.5, Critical: 85}, tier.Thresholds{Warm: 50, Hot: 70.5, Critical: 85}},
		{"equal", tier.Thresholds{Warm: 60, Hot: 60, Critical: 90}, tier.Default()},
		{"reversed", tier.Thresholds{Warm: 90, Hot: 80, Critical: 60}, tier.Default()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.SetThresholds(tt.in)
			s.Normalize()
			if s.Thresholds() != tt.want {
				t.Errorf("Thresholds() = %+v, want %+v", s.Thresholds(), tt.want)
			}
		})
	}
}

func TestNormalizeClampsRefresh(t *testing.T) {
	s := Default()
	s.RefreshIntervalMs = int(2 * MaxRefresh / time.Millisecond)
	s.Normalize()
	if s.Interval() != MaxRefresh {
		t.Errorf("Interval() = %v, want %v", s.Interval(), MaxRefresh)
	}
}
