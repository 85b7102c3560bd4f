package source

import (
	"fmt"

	"github.com/luki/hotcpu/internal/sensor"
)

// ZoneRecord is a legacy ACPI thermal zone in tenths of a Kelvin.
type ZoneRecord struct {
	Instance   string
	DeciKelvin float64
}

// ThermalZones reads legacy ACPI thermal zones.
type ThermalZones struct {
	Query func() ([]ZoneRecord, error)
}

func (z *ThermalZones) Name() string {
	return "thermal zones"
}

func (z *ThermalZones) ProduceReadings() []sensor.Draft {
	if z.Query == nil {
		return nil
	}
	records, err := z.Query()
	if err != nil {
		log.WithError(err).Debug("thermal zone query failed")
		return nil
	}

	var drafts []sensor.Draft
	for _, r := range records {
		celsius := r.DeciKelvin/10 - 273.15
		if !sensor.ValidZone(celsius) {
			continue
		}
		name := lastSegment(r.Instance)
		if name == "" {
			name = "Thermal Zone"
		}
		drafts = append(drafts, sensor.Draft{
			GroupID:  "acpi",
			Group:    "Motherboard / ACPI",
			Category: sensor.Thermal,
			ID:       "acpi/" + name,
			Name:     name,
			Temp:     celsius,
		})
	}
	return drafts
}

// DiskRecord is a physical disk temperature in °C.
type DiskRecord struct {
	Name    string
	Celsius float64
}

// StorageHealth reads drive temperatures from the storage health backend.
type StorageHealth struct {
	Query func() ([]DiskRecord, error)
}

func (s *StorageHealth) Name() string {
	return "storage health"
}

func (s *StorageHealth) ProduceReadings() []sensor.Draft {
	if s.Query == nil {
		return nil
	}
	records, err := s.Query()
	if err != nil {
		log.WithError(err).Debug("storage health query failed")
		return nil
	}

	var drafts []sensor.Draft
	for _, r := range records {
		if !sensor.ValidChip(r.Celsius) {
			continue
		}
		name := r.Name
		if name == "" {
			name = "Unknown Disk"
		}
		drafts = append(drafts, sensor.Draft{
			GroupID:  "disks",
			Group:    "Storage",
			Category: sensor.Storage,
			ID:       "disk/" + name,
			Name:     sensor.SimplifyHardwareName(name),
			Temp:     r.Celsius,
		})
	}
	return drafts
}

// CounterRecord is a thermal performance counter sample. Value is Kelvin or
// Celsius depending on the platform.
type CounterRecord struct {
	Name  string
	Value float64
}

// kelvinCutoff separates Kelvin counter samples from Celsius ones.
const kelvinCutoff = 200.0

// PerfCounters reads thermal-zone performance counters.
type PerfCounters struct {
	Query func() ([]CounterRecord, error)
}

func (p *PerfCounters) Name() string {
	return "perf counters"
}

func (p *PerfCounters) ProduceReadings() []sensor.Draft {
	if p.Query == nil {
		return nil
	}
	records, err := p.Query()
	if err != nil {
		log.WithError(err).Debug("perf counter query failed")
		return nil
	}

	var drafts []sensor.Draft
	for i, r := range records {
		celsius := r.Value
		if celsius > kelvinCutoff {
			celsius -= 273.15
		}
		if !sensor.ValidZone(celsius) {
			continue
		}
		name := lastSegment(r.Name)
		if name == "" {
			name = fmt.Sprintf("Thermal Zone %d", i)
		}
		drafts = append(drafts, sensor.Draft{
			GroupID:  "perf",
			Group:    "Motherboard / ACPI (Counters)",
			Category: sensor.Thermal,
			ID:       "perf/" + name,
			Name:     name,
			Temp:     celsius,
		})
	}
	return drafts
}
