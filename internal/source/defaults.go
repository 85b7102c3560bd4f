package source

// queries are the platform backends of the record-based readers. A nil
// query makes its reader produce nothing.
type queries struct {
	zones    func() ([]ZoneRecord, error)
	disks    func() ([]DiskRecord, error)
	counters func() ([]CounterRecord, error)
}

// Defaults returns the fixed, ordered reader registry for this platform:
// primary hardware, GPU vendor, legacy thermal zones, storage health and
// performance counters.
func Defaults(names HostNames) []Source {
	run := Runner(ExecRunner)
	q := platformQueries(run)
	return []Source{
		NewHardware(
			&LMSensors{Run: run, Names: names},
			&SensorsText{Names: names},
			&Gopsutil{Names: names},
		),
		&NvidiaSMI{Run: run},
		&ThermalZones{Query: q.zones},
		&StorageHealth{Query: q.disks},
		&PerfCounters{Query: q.counters},
	}
}
