package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luki/hotcpu/internal/sensor"
)

// Kind is the physical quantity a hardware sensor measures.
type Kind int

const (
	Temperature Kind = iota
	Fan
	Voltage
	Power
	Unknown
)

// Value is one sensor on a device. Value is nil when the backend lists the
// sensor but has no current reading for it.
type Value struct {
	Key   string
	Name  string
	Kind  Kind
	Value *float64
}

// Device is a piece of hardware with its own sensors and, for boards with
// embedded controllers, sub-devices.
type Device struct {
	ID       string
	Name     string
	Category sensor.Category
	Sensors  []Value
	Children []Device
}

// Enumerator lists the device tree of one hardware backend.
type Enumerator interface {
	Name() string
	Devices() ([]Device, error)
}

// controllerMarkers identify embedded-controller sub-devices whose sensor
// names already read well on their own.
var controllerMarkers = []string{"nuvoton", "ite", "nct"}

// Hardware is the primary reader. It walks the device tree reported by the
// first enumerator that works.
type Hardware struct {
	Enumerators []Enumerator
	active      Enumerator
}

// NewHardware returns a reader over the given enumerators, tried in order.
func NewHardware(enums ...Enumerator) *Hardware {
	return &Hardware{Enumerators: enums}
}

func (h *Hardware) Name() string {
	return "hardware"
}

// Open selects the first enumerator that reports at least one device.
func (h *Hardware) Open() error {
	var errs []error
	for _, e := range h.Enumerators {
		devices, err := e.Devices()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		if len(devices) == 0 {
			errs = append(errs, fmt.Errorf("%s: no devices", e.Name()))
			continue
		}
		log.WithField("enumerator", e.Name()).Info("hardware session opened")
		h.active = e
		return nil
	}
	return fmt.Errorf("open hardware: %w", errors.Join(append([]error{ErrUnavailable}, errs...)...))
}

// Close releases the session; later polls produce nothing until reopened.
func (h *Hardware) Close() error {
	h.active = nil
	return nil
}

// ProduceReadings walks every device and emits its temperature sensors.
func (h *Hardware) ProduceReadings() []sensor.Draft {
	if h.active == nil {
		return nil
	}
	devices, err := h.active.Devices()
	if err != nil {
		log.WithError(err).WithField("enumerator", h.active.Name()).Debug("enumeration failed")
		return nil
	}

	var drafts []sensor.Draft
	for _, d := range devices {
		drafts = appendTemps(drafts, d, d.Sensors, func(v Value) string { return v.Name })
		drafts = walkChildren(drafts, d, d.Children)
	}
	return drafts
}

func walkChildren(drafts []sensor.Draft, top Device, children []Device) []sensor.Draft {
	for _, sub := range children {
		bare := sub.Name != top.Name && isController(sub.Name)
		drafts = appendTemps(drafts, top, sub.Sensors, func(v Value) string {
			if bare {
				return v.Name
			}
			return sub.Name + " - " + v.Name
		})
		drafts = walkChildren(drafts, top, sub.Children)
	}
	return drafts
}

func appendTemps(drafts []sensor.Draft, top Device, values []Value, name func(Value) string) []sensor.Draft {
	for _, v := range values {
		if v.Kind != Temperature || v.Value == nil || !sensor.ValidChip(*v.Value) {
			continue
		}
		drafts = append(drafts, sensor.Draft{
			GroupID:  top.ID,
			Group:    top.Name,
			Category: top.Category,
			ID:       top.ID + "/" + v.Key,
			Name:     name(v),
			Temp:     *v.Value,
		})
	}
	return drafts
}

func isController(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range controllerMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
