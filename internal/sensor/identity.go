package sensor

import "strings"

// chipIdentityMap maps lm-sensors chip name prefixes to friendly component
// names and categories. Order matters: the first matching prefix wins.
var chipIdentityMap = []struct {
	prefix   string
	name     string
	category Category
}{
	{"coretemp", "CPU", CPU},
	{"k10temp", "CPU", CPU},
	{"zenpower", "CPU", CPU},
	{"cpu_thermal", "CPU", CPU},
	{"amdgpu", "GPU (AMD)", GPU},
	{"radeon", "GPU (AMD)", GPU},
	{"nouveau", "GPU (NVIDIA)", GPU},
	{"nvidia-gpu", "GPU (NVIDIA)", GPU},
	{"nvidia", "GPU (NVIDIA)", GPU},
	{"intel_gpu", "GPU (Intel)", GPU},
	{"i915", "GPU (Intel)", GPU},
	{"nvme", "NVMe SSD", Storage},
	{"drivetemp", "HDD/SSD", Storage},
	{"smart-", "HDD/SSD", Storage},
	{"iwlwifi", "WiFi", Network},
	{"ath", "WiFi", Network},
	{"mt7", "WiFi", Network},
	{"rtw", "WiFi", Network},
	{"spd5118", "Memory", Memory},
	{"jc42", "Memory", Memory},
	{"pch", "PCH (Chipset)", Motherboard},
	{"acpi", "ACPI Thermal", Thermal},
	{"it8", "Motherboard", Motherboard},
	{"nct", "Motherboard", Motherboard},
	{"w83", "Motherboard", Motherboard},
	{"f71", "Motherboard", Motherboard},
	{"asus", "Motherboard", Motherboard},
	{"corsairpsu", "PSU", PSU},
	{"nzxt", "Cooler", Cooler},
	{"kraken", "Cooler", Cooler},
	{"thinkpad", "Laptop EC", Motherboard},
	{"dell", "Laptop EC", Motherboard},
	{"hp", "Laptop EC", Motherboard},
	{"bat", "Battery", Battery},
}

// FriendlyName returns a human-readable component name for a chip ID.
func FriendlyName(chip string) string {
	name, _ := Identify(chip)
	return name
}

// Identify returns the friendly name and category for a chip ID.
func Identify(chip string) (string, Category) {
	lower := strings.ToLower(chip)
	for _, entry := range chipIdentityMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.name, entry.category
		}
	}
	return "Sensor", Other
}

// controllerChips are Super I/O embedded controllers found on desktop
// motherboards, keyed by chip prefix with the vendor they ship under.
var controllerChips = []struct {
	prefix string
	vendor string
}{
	{"nct", "Nuvoton"},
	{"it8", "ITE"},
	{"w83", "Winbond"},
	{"f71", "Fintek"},
}

// ControllerName returns "<Vendor> <MODEL>" for a Super I/O chip ID such as
// "nct6798-isa-0290", and false for anything else.
func ControllerName(chip string) (string, bool) {
	lower := strings.ToLower(chip)
	for _, c := range controllerChips {
		if strings.HasPrefix(lower, c.prefix) {
			model := lower
			if i := strings.IndexByte(model, '-'); i > 0 {
				model = model[:i]
			}
			return c.vendor + " " + strings.ToUpper(model), true
		}
	}
	return "", false
}
