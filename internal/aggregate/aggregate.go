// Package aggregate merges the output of every source into one snapshot
// per poll: normalized, de-duplicated, history-tracked and summarized by a
// representative main temperature.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/history"
	"github.com/luki/hotcpu/internal/observability"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/source"
	"github.com/luki/hotcpu/internal/tier"
)

var log = logrus.WithField("component", "aggregate")

// mainPriority lists, in order, the sensor name fragments that identify the
// representative CPU temperature.
var mainPriority = []string{"Package", "Tctl", "Tdie", "CPU", "Core (Tctl", "CCD"}

// Aggregator polls a fixed, ordered set of sources. Poll must not be called
// concurrently; the poll loop owns it.
type Aggregator struct {
	sources []source.Source
	history *history.Tracker
	now     func() time.Time
}

// New returns an aggregator over sources in the given order. The first
// source is the primary hardware reader.
func New(sources []source.Source) *Aggregator {
	return &Aggregator{
		sources: sources,
		history: history.NewTracker(history.DefaultCapacity),
		now:     time.Now,
	}
}

// Open starts the session of every source that needs one. Only a primary
// failure is returned; the other sources just stay silent.
func (a *Aggregator) Open() error {
	var primary error
	for i, src := range a.sources {
		o, ok := src.(source.Opener)
		if !ok {
			continue
		}
		if err := o.Open(); err != nil {
			if i == 0 {
				primary = fmt.Errorf("open %s: %w", src.Name(), err)
				continue
			}
			log.WithError(err).WithField("source", src.Name()).Debug("source unavailable")
		}
	}
	return primary
}

// Close releases every source session.
func (a *Aggregator) Close() error {
	var errs []error
	for _, src := range a.sources {
		if c, ok := src.(source.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", src.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// groupKey identifies a group by its source and the source's device key.
type groupKey struct {
	source string
	group  string
}

// building is a group under construction, with the raw sensor names the
// main-temperature heuristic matches against.
type building struct {
	group sensor.Group
	raw   []string
}

// Poll runs every source once and builds a snapshot. It never panics: any
// fault yields a degraded snapshot instead.
func (a *Aggregator) Poll(th tier.Thresholds) (snap *sensor.Snapshot) {
	at := a.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			log.WithError(err).Error("poll failed")
			observability.CaptureFault(err, observability.Fault{
				Component: "aggregate",
				Extra:     map[string]interface{}{"sources": len(a.sources), "poll_time": at},
			})
			snap = sensor.Degraded(err, th, at)
		}
	}()

	var order []*building
	byKey := make(map[groupKey]*building)
	seen := make(map[string]struct{})

	for _, src := range a.sources {
		name := src.Name()
		for _, d := range source.Collect(src) {
			if !sensor.ValidZone(d.Temp) {
				continue
			}
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}

			k := groupKey{source: name, group: d.GroupID}
			b, ok := byKey[k]
			if !ok {
				b = &building{group: sensor.Group{
					Name:     sensor.SimplifyHardwareName(d.Group),
					Category: d.Category,
					Glyph:    d.Category.Glyph(),
					Source:   name,
				}}
				byKey[k] = b
				order = append(order, b)
			}

			a.history.Record(d.ID, d.Temp)
			min, peak, _ := a.history.Extremes(d.ID)
			b.group.Sensors = append(b.group.Sensors, sensor.Reading{
				ID:      d.ID,
				Name:    sensor.CleanSensorName(d.Name, d.Group),
				Temp:    d.Temp,
				History: a.history.Snapshot(d.ID),
				Min:     min,
				Peak:    peak,
			})
			b.raw = append(b.raw, d.Name)
		}
	}

	snap = &sensor.Snapshot{
		Name:       "CPU",
		Groups:     make([]sensor.Group, 0, len(order)),
		Thresholds: th,
		Time:       at,
	}
	for _, b := range order {
		snap.Groups = append(snap.Groups, b.group)
	}

	found := false
	for _, b := range order {
		if b.group.Category != sensor.CPU {
			continue
		}
		if t, ok := mainTemp(b.group.Sensors, b.raw); ok && t > 0 {
			snap.Temperature, snap.Name = t, b.group.Name
			found = true
			break
		}
	}
	if !found {
		if g, r, ok := hottest(snap.Groups); ok {
			snap.Temperature, snap.Name = r.Temp, g.Name
		}
	}
	return snap
}

// mainTemp picks the representative temperature among one CPU group's
// sensors: the first priority match, then the hottest core, then the first
// sensor.
func mainTemp(sensors []sensor.Reading, raw []string) (float64, bool) {
	if len(sensors) == 0 {
		return 0, false
	}
	for _, p := range mainPriority {
		for i, name := range raw {
			if containsFold(name, p) {
				return sensors[i].Temp, true
			}
		}
	}

	var cores []sensor.Reading
	for i, name := range raw {
		if containsFold(name, "Core") || containsFold(name, "CCD") {
			cores = append(cores, sensors[i])
		}
	}
	if len(cores) > 0 {
		return lo.MaxBy(cores, func(a, b sensor.Reading) bool { return a.Temp > b.Temp }).Temp, true
	}
	return sensors[0].Temp, true
}

// hottest returns the hottest sensor across all groups with its group.
// Ties keep the earliest.
func hottest(groups []sensor.Group) (sensor.Group, sensor.Reading, bool) {
	var (
		bestGroup sensor.Group
		best      sensor.Reading
		found     bool
	)
	for _, g := range groups {
		for _, r := range g.Sensors {
			if !found || r.Temp > best.Temp {
				bestGroup, best, found = g, r, true
			}
		}
	}
	return bestGroup, best, found
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
