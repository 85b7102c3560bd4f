package source

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/ssimunic/gosensors"
)

// ── lm-sensors JSON (primary) ────────────────────────────────────────

// LMSensors enumerates devices from `sensors -j`.
type LMSensors struct {
	Run   Runner
	Names HostNames
}

func (l *LMSensors) Name() string {
	return "lm-sensors"
}

func (l *LMSensors) Devices() ([]Device, error) {
	run := l.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run("sensors", "-j")
	if err != nil {
		return nil, fmt.Errorf("sensors -j: %w", err)
	}
	values, err := parseSensorsJSON(out)
	if err != nil {
		return nil, err
	}
	return chipDevices(values, l.Names), nil
}

func parseSensorsJSON(out []byte) ([]chipValue, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("decode sensors json: %w", err)
	}

	var values []chipValue
	for _, chipName := range sortedKeys(data) {
		var chip map[string]json.RawMessage
		if err := json.Unmarshal(data[chipName], &chip); err != nil {
			continue
		}
		for _, label := range sortedKeys(chip) {
			if label == "Adapter" {
				continue
			}
			var fields map[string]float64
			if err := json.Unmarshal(chip[label], &fields); err != nil || len(fields) == 0 {
				continue
			}
			values = append(values, fieldValue(chipName, label, fields))
		}
	}
	return values, nil
}

// fieldValue picks the *_input field of a sensor. A sensor that only
// carries limits keeps its kind but has no value.
func fieldValue(chip, label string, fields map[string]float64) chipValue {
	v := chipValue{Chip: chip, Label: label, Kind: Unknown}
	for _, k := range sortedKeys(fields) {
		if v.Kind == Unknown {
			v.Kind = kindOf(k)
		}
		if strings.HasSuffix(k, "_input") {
			val := fields[k]
			v.Kind = kindOf(k)
			v.Value = &val
			break
		}
	}
	return v
}

// ── lm-sensors text (fallback for older releases) ────────────────────

var (
	tempValRe = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*°C`)
	fanValRe  = regexp.MustCompile(`(\d+)\s*RPM`)
	voltValRe = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*V\b`)
)

// SensorsText enumerates devices from the human-readable `sensors` output.
type SensorsText struct {
	Load  func() (*gosensors.Sensors, error)
	Names HostNames
}

func (s *SensorsText) Name() string {
	return "lm-sensors text"
}

func (s *SensorsText) Devices() ([]Device, error) {
	load := s.Load
	if load == nil {
		load = gosensors.NewFromSystem
	}
	data, err := load()
	if err != nil {
		return nil, fmt.Errorf("sensors: %w", err)
	}
	return chipDevices(textValues(data.Chips), s.Names), nil
}

func textValues(chips map[string]gosensors.Entries) []chipValue {
	var values []chipValue
	for _, chip := range sortedKeys(chips) {
		entries := chips[chip]
		for _, label := range sortedKeys(entries) {
			if label == "Adapter" {
				continue
			}
			if v, ok := parseTextValue(chip, label, entries[label]); ok {
				values = append(values, v)
			}
		}
	}
	return values
}

func parseTextValue(chip, label, raw string) (chipValue, bool) {
	v := chipValue{Chip: chip, Label: label}
	var m []string
	switch {
	case strings.Contains(raw, "°C"):
		v.Kind = Temperature
		m = tempValRe.FindStringSubmatch(raw)
	case strings.Contains(raw, "RPM"):
		v.Kind = Fan
		m = fanValRe.FindStringSubmatch(raw)
	case voltValRe.MatchString(raw):
		v.Kind = Voltage
		m = voltValRe.FindStringSubmatch(raw)
	default:
		return v, false
	}
	if m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.Value = &f
		}
	}
	return v, true
}

// ── gopsutil host sensors (portable fallback) ────────────────────────

const gopsutilTimeout = 3 * time.Second

// Gopsutil enumerates temperatures through gopsutil's host package.
type Gopsutil struct {
	Fetch func(ctx context.Context) ([]host.TemperatureStat, error)
	Names HostNames
}

func (g *Gopsutil) Name() string {
	return "gopsutil"
}

func (g *Gopsutil) Devices() ([]Device, error) {
	fetch := g.Fetch
	if fetch == nil {
		fetch = host.SensorsTemperaturesWithContext
	}
	ctx, cancel := context.WithTimeout(context.Background(), gopsutilTimeout)
	defer cancel()

	stats, err := fetch(ctx)
	// gopsutil reports unreadable hwmon entries as warnings next to the
	// entries it did read.
	if err != nil && len(stats) == 0 {
		return nil, fmt.Errorf("host sensors: %w", err)
	}

	values := make([]chipValue, 0, len(stats))
	for _, st := range stats {
		chip, label := splitSensorKey(st.SensorKey)
		t := st.Temperature
		values = append(values, chipValue{Chip: chip, Label: label, Kind: Temperature, Value: &t})
	}
	return chipDevices(values, g.Names), nil
}

// splitSensorKey turns "coretemp_package_id_0" into ("coretemp",
// "Package Id 0").
func splitSensorKey(key string) (string, string) {
	chip, label, ok := strings.Cut(key, "_")
	if !ok || label == "" {
		return key, "Temperature"
	}
	words := strings.Fields(strings.ReplaceAll(label, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return chip, strings.Join(words, " ")
}
