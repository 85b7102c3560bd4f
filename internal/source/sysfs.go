package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// SysfsZones returns a ZoneRecord query over the kernel thermal zones under
// root, normally /sys/class/thermal. The kernel reports millidegrees
// Celsius; records carry tenths of a Kelvin like ACPI does.
func SysfsZones(root string) func() ([]ZoneRecord, error) {
	return func() ([]ZoneRecord, error) {
		dirs, err := filepath.Glob(filepath.Join(root, "thermal_zone*"))
		if err != nil {
			return nil, fmt.Errorf("glob thermal zones: %w", err)
		}
		var records []ZoneRecord
		for _, dir := range dirs {
			raw, err := os.ReadFile(filepath.Join(dir, "temp"))
			if err != nil {
				continue
			}
			milliC, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
			if err != nil {
				continue
			}
			zone := strings.TrimPrefix(filepath.Base(dir), "thermal_zone")
			instance := "thermal_zone" + zone
			if typ, err := os.ReadFile(filepath.Join(dir, "type")); err == nil {
				if t := strings.TrimSpace(string(typ)); t != "" {
					instance = t + "_" + zone
				}
			}
			records = append(records, ZoneRecord{
				Instance:   instance,
				DeciKelvin: milliC/100 + 2731.5,
			})
		}
		return records, nil
	}
}

// Smartctl returns a DiskRecord query that asks smartctl for the SMART
// temperature of every device matching pattern, e.g. /dev/sd?.
func Smartctl(run Runner, pattern string) func() ([]DiskRecord, error) {
	return func() ([]DiskRecord, error) {
		drives, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob drives: %w", err)
		}
		var records []DiskRecord
		for _, dev := range drives {
			out, err := smartctl(run, "-A", dev)
			if err != nil {
				continue
			}
			temp, ok := parseSmartTemp(string(out))
			if !ok {
				continue
			}
			name := filepath.Base(dev)
			if info, err := smartctl(run, "-i", dev); err == nil {
				if model := parseSmartModel(string(info)); model != "" {
					name = model
				}
			}
			records = append(records, DiskRecord{Name: name, Celsius: temp})
		}
		return records, nil
	}
}

// smartctl needs root for most drives; try passwordless sudo first.
func smartctl(run Runner, flag, dev string) ([]byte, error) {
	out, err := run("sudo", "-n", "smartctl", flag, dev)
	if err == nil {
		return out, nil
	}
	return run("smartctl", flag, dev)
}

var smartTempRe = regexp.MustCompile(`^\s*(194|190)\s+\S*Temp\S*\s+(?:\S+\s+){7}(\d+)`)

// parseSmartTemp prefers attribute 194 (Temperature_Celsius) over 190
// (Airflow_Temperature_Cel).
func parseSmartTemp(output string) (float64, bool) {
	found := map[string]float64{}
	for _, line := range strings.Split(output, "\n") {
		m := smartTempRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			if _, seen := found[m[1]]; !seen {
				found[m[1]] = v
			}
		}
	}
	for _, attr := range []string{"194", "190"} {
		if v, ok := found[attr]; ok {
			return v, true
		}
	}
	return 0, false
}

func parseSmartModel(output string) string {
	for _, line := range strings.Split(output, "\n") {
		for _, prefix := range []string{"Device Model:", "Model Number:"} {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
	}
	return ""
}
