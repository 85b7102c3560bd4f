package source

import (
	"errors"
	"testing"

	"github.com/luki/hotcpu/internal/sensor"
)

type fakeEnumerator struct {
	name    string
	devices []Device
	err     error
	calls   int
}

func (f *fakeEnumerator) Name() string { return f.name }

func (f *fakeEnumerator) Devices() ([]Device, error) {
	f.calls++
	return f.devices, f.err
}

func ptr(v float64) *float64 { return &v }

func TestHardwareWalk(t *testing.T) {
	enum := &fakeEnumerator{name: "fake", devices: []Device{
		{
			ID: "cpu0", Name: "AMD Ryzen 7 5800X", Category: sensor.CPU,
			Sensors: []Value{
				{Key: "tctl", Name: "Tctl", Kind: Temperature, Value: ptr(55)},
				{Key: "load", Name: "Total", Kind: Power, Value: ptr(30)},
				{Key: "ccd1", Name: "CCD1", Kind: Temperature},
			},
		},
		{
			ID: "board", Name: "ASUS PRIME X570", Category: sensor.Motherboard,
			Children: []Device{
				{ID: "nct", Name: "Nuvoton NCT6798", Sensors: []Value{
					{Key: "systin", Name: "SYSTIN", Kind: Temperature, Value: ptr(34)},
				}},
				{ID: "ec", Name: "Embedded Controller", Sensors: []Value{
					{Key: "vrm", Name: "VRM", Kind: Temperature, Value: ptr(48)},
					{Key: "bogus", Name: "Bogus", Kind: Temperature, Value: ptr(255)},
				}},
			},
		},
	}}

	h := NewHardware(enum)
	if got := h.ProduceReadings(); got != nil {
		t.Fatalf("ProduceReadings before Open = %v, want nil", got)
	}
	if err := h.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}

	got := h.ProduceReadings()
	want := []sensor.Draft{
		{GroupID: "cpu0", Group: "AMD Ryzen 7 5800X", Category: sensor.CPU, ID: "cpu0/tctl", Name: "Tctl", Temp: 55},
		{GroupID: "board", Group: "ASUS PRIME X570", Category: sensor.Motherboard, ID: "board/systin", Name: "SYSTIN", Temp: 34},
		{GroupID: "board", Group: "ASUS PRIME X570", Category: sensor.Motherboard, ID: "board/vrm", Name: "Embedded Controller - VRM", Temp: 48},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d drafts, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draft %d:\n got  %+v\n want %+v", i, got[i], want[i])
		}
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := h.ProduceReadings(); got != nil {
		t.Errorf("ProduceReadings after Close = %v, want nil", got)
	}
}

func TestHardwareOpenFallsThrough(t *testing.T) {
	broken := &fakeEnumerator{name: "broken", err: errors.New("exec: not found")}
	empty := &fakeEnumerator{name: "empty"}
	working := &fakeEnumerator{name: "working", devices: []Device{{ID: "x", Name: "X"}}}

	h := NewHardware(broken, empty, working)
	if err := h.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.active != working {
		t.Errorf("active enumerator = %v, want working", h.active)
	}
}

func TestHardwareOpenFails(t *testing.T) {
	h := NewHardware(&fakeEnumerator{name: "broken", err: errors.New("boom")})
	err := h.Open()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Open error = %v, want ErrUnavailable", err)
	}
	if got := h.ProduceReadings(); got != nil {
		t.Errorf("ProduceReadings = %v, want nil", got)
	}
}

func TestHardwareEnumerationErrorIsSilent(t *testing.T) {
	enum := &fakeEnumerator{name: "flaky", devices: []Device{{ID: "x", Name: "X"}}}
	h := NewHardware(enum)
	if err := h.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	enum.err = errors.New("transient")
	enum.devices = nil
	if got := h.ProduceReadings(); got != nil {
		t.Errorf("ProduceReadings = %v, want nil", got)
	}
}

type panicSource struct{}

func (panicSource) Name() string                    { return "panicky" }
func (panicSource) ProduceReadings() []sensor.Draft { panic("driver crashed") }

func TestCollectRecovers(t *testing.T) {
	if got := Collect(panicSource{}); got != nil {
		t.Errorf("Collect = %v, want nil", got)
	}
}

func TestLastSegment(t *testing.T) {
	tests := map[string]string{
		`ACPI\ThermalZone\TZ00_0`: "TZ00_0",
		"TZ01":                    "TZ01",
		`trailing\`:               "",
	}
	for in, want := range tests {
		if got := lastSegment(in); got != want {
			t.Errorf("lastSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
