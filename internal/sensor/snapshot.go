package sensor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/luki/hotcpu/internal/tier"
)

// Snapshot is one aggregated poll result. It is never modified after it
// has been published; every tick produces a new one.
type Snapshot struct {
	Temperature float64         `json:"temperature"`
	Name        string          `json:"name"`
	Groups      []Group         `json:"groups"`
	Thresholds  tier.Thresholds `json:"thresholds"`
	Time        time.Time       `json:"time"`
	Err         string          `json:"error,omitempty"`
}

// Placeholder is the snapshot visible before the first poll completes.
func Placeholder(th tier.Thresholds) *Snapshot {
	return &Snapshot{Name: "Initializing...", Groups: []Group{}, Thresholds: th}
}

// Degraded builds the snapshot published when a poll fails outright.
func Degraded(err error, th tier.Thresholds, at time.Time) *Snapshot {
	return &Snapshot{
		Name:       fmt.Sprintf("Error: %v", err),
		Groups:     []Group{},
		Thresholds: th,
		Time:       at,
		Err:        err.Error(),
	}
}

// Degraded reports whether the snapshot came from a failed poll.
func (s *Snapshot) Degraded() bool {
	return s.Err != ""
}

// Tier classifies the representative temperature.
func (s *Snapshot) Tier() tier.Tier {
	return tier.Classify(s.Temperature, s.Thresholds)
}

// SensorTier classifies a single sensor against the snapshot's thresholds.
func (s *Snapshot) SensorTier(r Reading) tier.Tier {
	return tier.Classify(r.Temp, s.Thresholds)
}

// Rounded returns the representative temperature rounded to a whole degree.
func (s *Snapshot) Rounded() int {
	return int(math.Round(s.Temperature))
}

// Find looks up a sensor by identifier.
func (s *Snapshot) Find(id string) (Reading, bool) {
	for _, g := range s.Groups {
		for _, r := range g.Sensors {
			if r.ID == id {
				return r, true
			}
		}
	}
	return Reading{}, false
}

// Visible returns the groups with hidden sensors removed. Groups left
// without sensors are dropped.
func (s *Snapshot) Visible(hidden []string) []Group {
	if len(hidden) == 0 {
		return s.Groups
	}
	skip := lo.SliceToMap(hidden, func(id string) (string, struct{}) { return id, struct{}{} })
	var out []Group
	for _, g := range s.Groups {
		kept := lo.Filter(g.Sensors, func(r Reading, _ int) bool {
			_, drop := skip[r.ID]
			return !drop
		})
		if len(kept) == 0 {
			continue
		}
		g.Sensors = kept
		out = append(out, g)
	}
	return out
}

// Entry is a flattened (sensor, temperature) pair handed to loggers.
type Entry struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Temp float64 `json:"temp"`
}

// Select flattens the sensors whose identifiers are in ids, in snapshot
// order.
func (s *Snapshot) Select(ids []string) []Entry {
	var out []Entry
	for _, g := range s.Groups {
		for _, r := range g.Sensors {
			if lo.Contains(ids, r.ID) {
				out = append(out, Entry{ID: r.ID, Name: r.Name, Temp: r.Temp})
			}
		}
	}
	return out
}

// Stats are aggregate figures over a set of entries.
type Stats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize computes Stats over entries; false when there are none.
func Summarize(entries []Entry) (Stats, bool) {
	if len(entries) == 0 {
		return Stats{}, false
	}
	sum := lo.SumBy(entries, func(e Entry) float64 { return e.Temp })
	return Stats{
		Average: sum / float64(len(entries)),
		Min:     lo.MinBy(entries, func(a, b Entry) bool { return a.Temp < b.Temp }).Temp,
		Max:     lo.MaxBy(entries, func(a, b Entry) bool { return a.Temp > b.Temp }).Temp,
	}, true
}

// Summary is the one-line tooltip text: the representative sensor and, when
// present, the hottest GPU.
func (s *Snapshot) Summary() string {
	parts := []string{fmt.Sprintf("%s: %d°C", s.Name, s.Rounded())}
	if gpu, ok := lo.Find(s.Groups, func(g Group) bool { return g.Category == GPU }); ok {
		if t, ok := gpu.MaxTemp(); ok {
			parts = append(parts, fmt.Sprintf("GPU: %d°C", int(t)))
		}
	}
	return strings.Join(parts, " | ")
}
