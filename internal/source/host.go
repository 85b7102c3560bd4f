package source

import (
	"bufio"
	"os"
	"strings"
)

// HostNames are the human names used for devices that lm-sensors only knows
// by driver name.
type HostNames struct {
	CPU   string // e.g. "AMD Ryzen 9 7950X 16-Core Processor"
	Board string // e.g. "ASUSTeK COMPUTER INC. ROG STRIX X670E-E"
}

// ProbeHostNames reads the CPU model and motherboard identity of this host.
// Missing values are left empty.
func ProbeHostNames() HostNames {
	return HostNames{
		CPU:   readCPUModel("/proc/cpuinfo"),
		Board: readBoard("/sys/devices/virtual/dmi/id"),
	}
}

func readCPUModel(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func readBoard(dir string) string {
	vendor := readDMIFile(dir + "/board_vendor")
	name := readDMIFile(dir + "/board_name")
	if !isUsefulDMIValue(vendor) && !isUsefulDMIValue(name) {
		return ""
	}
	return strings.Join(strings.Fields(vendor+" "+name), " ")
}

func readDMIFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	value := strings.TrimSpace(string(data))
	if !isUsefulDMIValue(value) {
		return ""
	}
	return value
}

func isUsefulDMIValue(value string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	if lower == "unknown" || lower == "default string" || strings.Contains(lower, "to be filled") {
		return false
	}
	return true
}
