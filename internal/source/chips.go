package source

import (
	"sort"
	"strings"

	"github.com/luki/hotcpu/internal/sensor"
)

// boardDeviceID keys the synthetic device that embedded controllers hang
// off.
const boardDeviceID = "board"

// chipValue is one labelled sensor value of an lm-sensors style chip.
type chipValue struct {
	Chip  string
	Label string
	Kind  Kind
	Value *float64
}

// chipDevices groups flat chip values into a device tree. Each chip becomes
// a device, except Super I/O controllers, which become sub-devices of a
// single motherboard device.
func chipDevices(values []chipValue, names HostNames) []Device {
	var devices []Device
	byChip := make(map[string]int)
	board := -1
	boardChildren := make(map[string]int)

	for _, v := range values {
		if ctrl, ok := sensor.ControllerName(v.Chip); ok {
			if board < 0 {
				name := names.Board
				if name == "" {
					name = "Motherboard"
				}
				devices = append(devices, Device{ID: boardDeviceID, Name: name, Category: sensor.Motherboard})
				board = len(devices) - 1
			}
			j, ok := boardChildren[v.Chip]
			if !ok {
				devices[board].Children = append(devices[board].Children, Device{
					ID:       v.Chip,
					Name:     ctrl,
					Category: sensor.Motherboard,
				})
				j = len(devices[board].Children) - 1
				boardChildren[v.Chip] = j
			}
			child := &devices[board].Children[j]
			child.Sensors = append(child.Sensors, Value{
				Key:   v.Chip + "/" + v.Label,
				Name:  v.Label,
				Kind:  v.Kind,
				Value: v.Value,
			})
			continue
		}

		i, ok := byChip[v.Chip]
		if !ok {
			name, category := sensor.Identify(v.Chip)
			if category == sensor.CPU && names.CPU != "" {
				name = names.CPU
			}
			devices = append(devices, Device{ID: v.Chip, Name: name, Category: category})
			i = len(devices) - 1
			byChip[v.Chip] = i
		}
		devices[i].Sensors = append(devices[i].Sensors, Value{
			Key:   v.Label,
			Name:  v.Label,
			Kind:  v.Kind,
			Value: v.Value,
		})
	}
	return devices
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func kindOf(field string) Kind {
	switch {
	case strings.HasPrefix(field, "temp"):
		return Temperature
	case strings.HasPrefix(field, "fan"):
		return Fan
	case strings.HasPrefix(field, "in"):
		return Voltage
	case strings.HasPrefix(field, "power"):
		return Power
	default:
		return Unknown
	}
}
