// Package sensor holds the temperature data model shared by the source
// readers, the aggregator and every snapshot consumer, together with the
// name normalization used to present hardware and sensor labels.
package sensor

import (
	"math"

	"github.com/samber/lo"
)

// Category tags the kind of hardware a group represents.
type Category string

const (
	CPU         Category = "CPU"
	GPU         Category = "GPU"
	Storage     Category = "Storage"
	Motherboard Category = "Motherboard"
	Network     Category = "Network"
	Memory      Category = "Memory"
	PSU         Category = "PSU"
	Battery     Category = "Battery"
	Cooler      Category = "Cooler"
	Thermal     Category = "Thermal"
	Other       Category = "Other"
)

// Glyph returns the icon hint shown next to a group of this category.
func (c Category) Glyph() string {
	switch c {
	case CPU:
		return "🔲"
	case GPU:
		return "🎮"
	case Motherboard, Thermal:
		return "🌡️"
	case Storage:
		return "💾"
	case Network:
		return "🌐"
	case Cooler:
		return "❄️"
	case Memory:
		return "📊"
	case PSU:
		return "⚡"
	case Battery:
		return "🔋"
	default:
		return "📟"
	}
}

// Draft is one raw sensor value as emitted by a source, before name
// normalization and history tracking.
type Draft struct {
	GroupID  string   // stable device key within the source, e.g. "k10temp-pci-00c3"
	Group    string   // raw hardware name
	Category Category // hardware kind
	ID       string   // globally unique sensor identifier
	Name     string   // raw sensor name
	Temp     float64  // °C
}

// Reading is one sensor inside a published snapshot.
type Reading struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Temp    float64   `json:"temp"`
	History []float64 `json:"history"`
	Min     float64   `json:"min"`
	Peak    float64   `json:"peak"`
}

// Rounded returns the temperature rounded to a whole degree.
func (r Reading) Rounded() int {
	return int(math.Round(r.Temp))
}

// Group is a physical device and the sensors that belong to it.
type Group struct {
	Name     string    `json:"name"`
	Category Category  `json:"category"`
	Glyph    string    `json:"glyph"`
	Source   string    `json:"source"`
	Sensors  []Reading `json:"sensors"`
}

// MaxTemp returns the hottest sensor temperature of the group.
func (g Group) MaxTemp() (float64, bool) {
	if len(g.Sensors) == 0 {
		return 0, false
	}
	hottest := lo.MaxBy(g.Sensors, func(a, b Reading) bool { return a.Temp > b.Temp })
	return hottest.Temp, true
}

// Sorted returns the group's sensors in display order; see SortReadings.
func (g Group) Sorted() []Reading {
	out := make([]Reading, len(g.Sensors))
	copy(out, g.Sensors)
	SortReadings(out)
	return out
}

// Plausibility bounds, exclusive on both ends.
const (
	chipMin = 0.0
	zoneMin = -50.0
	maxTemp = 200.0
)

// ValidChip reports whether t is a plausible chip sensor temperature.
// 0 and 255-style error values are rejected.
func ValidChip(t float64) bool {
	return finite(t) && t > chipMin && t < maxTemp
}

// ValidZone reports whether t is a plausible thermal-zone temperature.
func ValidZone(t float64) bool {
	return finite(t) && t > zoneMin && t < maxTemp
}

func finite(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0)
}
