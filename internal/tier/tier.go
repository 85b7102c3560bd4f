// Package tier classifies temperatures into severity tiers against a set
// of warm/hot/critical thresholds.
package tier

import (
	"fmt"
	"strings"
)

// Tier is the classified severity of a temperature.
type Tier int

const (
	Cool Tier = iota
	Warm
	Hot
	Critical
)

var tierNames = [...]string{"Cool", "Warm", "Hot", "Critical"}

func (t Tier) String() string {
	if t < Cool || t > Critical {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTier parses a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Tier(i), nil
		}
	}
	return Cool, fmt.Errorf("unknown tier %q", s)
}

// Thresholds are the lower bounds, in °C, of the Warm, Hot and Critical tiers.
type Thresholds struct {
	Warm     float64 `json:"warm"`
	Hot      float64 `json:"hot"`
	Critical float64 `json:"critical"`
}

// Default returns the stock 60/80/90 thresholds.
func Default() Thresholds {
	return Thresholds{Warm: 60, Hot: 80, Critical: 90}
}

// Validate reports whether the thresholds are strictly increasing.
// Classify does not depend on it.
func (th Thresholds) Validate() error {
	if th.Warm < th.Hot && th.Hot < th.Critical {
		return nil
	}
	return fmt.Errorf("thresholds out of order: warm=%.1f hot=%.1f critical=%.1f",
		th.Warm, th.Hot, th.Critical)
}

// Classify maps a temperature onto a tier. Each threshold is inclusive:
// a reading equal to Hot is Hot.
func Classify(temperature float64, th Thresholds) Tier {
	switch {
	case temperature >= th.Critical:
		return Critical
	case temperature >= th.Hot:
		return Hot
	case temperature >= th.Warm:
		return Warm
	default:
		return Cool
	}
}
