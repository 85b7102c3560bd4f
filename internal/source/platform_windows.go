//go:build windows

package source

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type msAcpiThermalZoneTemperature struct {
	InstanceName       string
	CurrentTemperature uint32
}

type msftPhysicalDisk struct {
	FriendlyName string
	Temperature  uint32
}

type thermalZoneInformation struct {
	Name        string
	Temperature uint32
}

func platformQueries(Runner) queries {
	return queries{
		zones:    wmiZones,
		disks:    wmiDisks,
		counters: wmiCounters,
	}
}

func wmiZones() ([]ZoneRecord, error) {
	var dst []msAcpiThermalZoneTemperature
	q := "SELECT InstanceName, CurrentTemperature FROM MSAcpi_ThermalZoneTemperature"
	if err := wmi.QueryNamespace(q, &dst, `root\WMI`); err != nil {
		return nil, fmt.Errorf("query thermal zones: %w", err)
	}
	records := make([]ZoneRecord, 0, len(dst))
	for _, z := range dst {
		records = append(records, ZoneRecord{Instance: z.InstanceName, DeciKelvin: float64(z.CurrentTemperature)})
	}
	return records, nil
}

func wmiDisks() ([]DiskRecord, error) {
	var dst []msftPhysicalDisk
	q := "SELECT FriendlyName, Temperature FROM MSFT_PhysicalDisk WHERE Temperature > 0"
	if err := wmi.QueryNamespace(q, &dst, `root\Microsoft\Windows\Storage`); err != nil {
		return nil, fmt.Errorf("query physical disks: %w", err)
	}
	records := make([]DiskRecord, 0, len(dst))
	for _, d := range dst {
		records = append(records, DiskRecord{Name: d.FriendlyName, Celsius: float64(d.Temperature)})
	}
	return records, nil
}

func wmiCounters() ([]CounterRecord, error) {
	var dst []thermalZoneInformation
	q := "SELECT Name, Temperature FROM Win32_PerfFormattedData_Counters_ThermalZoneInformation WHERE Temperature > 0"
	if err := wmi.QueryNamespace(q, &dst, `root\CIMv2`); err != nil {
		return nil, fmt.Errorf("query thermal counters: %w", err)
	}
	records := make([]CounterRecord, 0, len(dst))
	for _, c := range dst {
		records = append(records, CounterRecord{Name: c.Name, Value: float64(c.Temperature)})
	}
	return records, nil
}
