// Package config loads and saves the user settings file. The monitor core
// never reads it; callers pass the values they need.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luki/hotcpu/internal/tier"
)

const (
	appDir   = "hotcpu"
	fileName = "settings.json"

	// MinRefresh and MaxRefresh bound the poll interval.
	MinRefresh = 100 * time.Millisecond
	MaxRefresh = time.Hour
)

// Settings is the persisted configuration.
type Settings struct {
	RefreshIntervalMs int     `json:"refresh_interval_ms"`
	WarmThreshold     float64 `json:"warm_threshold"`
	HotThreshold      float64 `json:"hot_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`

	HiddenSensorIDs []string `json:"hidden_sensor_ids"`
	TraySensorIDs   []string `json:"tray_sensor_ids"`

	Colors Colors `json:"colors"`

	LogEnabled         bool     `json:"log_enabled"`
	LogPath            string   `json:"log_path"`
	LogIntervalSeconds int      `json:"log_interval_seconds"`
	LogFormat          string   `json:"log_format"`
	LogSensorIDs       []string `json:"log_sensor_ids"`
	LogAverage         bool     `json:"log_average"`
	LogMin             bool     `json:"log_min"`
	LogMax             bool     `json:"log_max"`
	LogMaxSizeMB       int      `json:"log_max_size_mb"`

	HTTPAddr    string  `json:"http_addr"`
	NatsURL     string  `json:"nats_url"`
	NatsSubject string  `json:"nats_subject"`
	HomeKit     HomeKit `json:"homekit"`
}

// Colors are the per-tier display colors as hex strings.
type Colors struct {
	Cool     string `json:"cool"`
	Warm     string `json:"warm"`
	Hot      string `json:"hot"`
	Critical string `json:"critical"`
}

// HomeKit configures the optional HomeKit thermometer.
type HomeKit struct {
	Enabled     bool   `json:"enabled"`
	Pin         string `json:"pin"`
	StoragePath string `json:"storage_path"`
}

// Default returns the stock settings.
func Default() Settings {
	th := tier.Default()
	return Settings{
		RefreshIntervalMs:  1000,
		WarmThreshold:      th.Warm,
		HotThreshold:       th.Hot,
		CriticalThreshold:  th.Critical,
		HiddenSensorIDs:    []string{},
		TraySensorIDs:      []string{},
		Colors:             Colors{Cool: "#FFFFFF", Warm: "#FFA500", Hot: "#FF4500", Critical: "#FF0000"},
		LogPath:            filepath.Join(DataDir(), "temperatures.csv"),
		LogIntervalSeconds: 5,
		LogFormat:          "CSV",
		LogSensorIDs:       []string{},
		LogMaxSizeMB:       10,
		HTTPAddr:           "127.0.0.1:9183",
		NatsSubject:        "hotcpu.reading",
		HomeKit:            HomeKit{Pin: "00102003", StoragePath: filepath.Join(DataDir(), "homekit")},
	}
}

// DefaultPath is the settings file under the user config directory.
func DefaultPath() string {
	return filepath.Join(configDir(), fileName)
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appDir
	}
	return filepath.Join(dir, appDir)
}

// DataDir holds the temperature log and HomeKit pairing data.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appDir
	}
	return filepath.Join(home, "."+appDir)
}

// Load reads settings from path. A missing file yields the defaults; a
// malformed one yields the defaults and an error.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.Normalize()
	return s, nil
}

// Save writes settings to path, creating its directory.
func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Normalize repairs values a hand-edited file may have broken.
func (s *Settings) Normalize() {
	if s.RefreshIntervalMs < int(MinRefresh/time.Millisecond) {
		s.RefreshIntervalMs = int(MinRefresh / time.Millisecond)
	}
	if s.RefreshIntervalMs > int(MaxRefresh/time.Millisecond) {
		s.RefreshIntervalMs = int(MaxRefresh / time.Millisecond)
	}
	if err := s.Thresholds().Validate(); err != nil {
		s.SetThresholds(tier.Default())
	}
	if s.LogIntervalSeconds < 1 {
		s.LogIntervalSeconds = 1
	}
	s.LogFormat = strings.ToUpper(strings.TrimSpace(s.LogFormat))
	switch s.LogFormat {
	case "CSV", "JSON", "TXT":
	default:
		s.LogFormat = "CSV"
	}
	if s.HiddenSensorIDs == nil {
		s.HiddenSensorIDs = []string{}
	}
	if s.TraySensorIDs == nil {
		s.TraySensorIDs = []string{}
	}
	if s.LogSensorIDs == nil {
		s.LogSensorIDs = []string{}
	}
}

// Interval returns the refresh interval.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.RefreshIntervalMs) * time.Millisecond
}

// LogInterval returns the temperature log interval.
func (s Settings) LogInterval() time.Duration {
	return time.Duration(s.LogIntervalSeconds) * time.Second
}

// Thresholds returns the tier thresholds.
func (s Settings) Thresholds() tier.Thresholds {
	return tier.Thresholds{
		Warm:     s.WarmThreshold,
		Hot:      s.HotThreshold,
		Critical: s.CriticalThreshold,
	}
}

// SetThresholds stores th as given.
func (s *Settings) SetThresholds(th tier.Thresholds) {
	s.WarmThreshold = th.Warm
	s.HotThreshold = th.Hot
	s.CriticalThreshold = th.Critical
}
