// Package homekit publishes the selected temperature as a HomeKit
// temperature sensor accessory.
package homekit

import (
	"fmt"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/service"
	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/sensor"
)

var log = logrus.WithField("component", "homekit")

// Options configure the accessory and its transport.
type Options struct {
	Name        string
	Pin         string
	StoragePath string
	SensorIDs   []string // first match wins; none means the main temperature
}

// Thermometer is a HomeKit sensor accessory fed from snapshots.
type Thermometer struct {
	*accessory.Accessory
	TempSensor *service.TemperatureSensor

	opts      Options
	transport hc.Transport
}

// New builds the accessory. Nothing is advertised until Start.
func New(opts Options) *Thermometer {
	if opts.Name == "" {
		opts.Name = "hotcpu"
	}
	info := accessory.Info{
		Name:             opts.Name,
		Manufacturer:     "hotcpu",
		Model:            "Temperature Monitor",
		SerialNumber:     "0",
		FirmwareRevision: "1.0.0",
		ID:               1,
	}
	t := &Thermometer{opts: opts}
	t.Accessory = accessory.New(info, accessory.TypeSensor)

	t.TempSensor = service.NewTemperatureSensor()
	t.TempSensor.CurrentTemperature.SetMinValue(-50)
	t.TempSensor.CurrentTemperature.SetMaxValue(200)
	t.TempSensor.CurrentTemperature.SetStepValue(0.1)
	t.TempSensor.CurrentTemperature.Description = fmt.Sprintf("%s Temp", info.Name)
	t.TempSensor.Primary = true
	t.Accessory.AddService(t.TempSensor.Service)

	return t
}

// Update sets the current temperature from snap. Degraded snapshots leave
// the last value in place.
func (t *Thermometer) Update(snap *sensor.Snapshot) {
	temp, ok := selectTemperature(snap, t.opts.SensorIDs)
	if !ok {
		return
	}
	if temp != t.TempSensor.CurrentTemperature.GetValue() {
		t.TempSensor.CurrentTemperature.SetValue(temp)
	}
}

// selectTemperature picks the first selected sensor present in snap, or the
// main temperature when none of them is.
func selectTemperature(snap *sensor.Snapshot, ids []string) (float64, bool) {
	if snap == nil || snap.Degraded() || snap.Time.IsZero() {
		return 0, false
	}
	for _, id := range ids {
		if r, ok := snap.Find(id); ok {
			return r.Temp, true
		}
	}
	return snap.Temperature, true
}

// Start advertises the accessory on the local network.
func (t *Thermometer) Start() error {
	config := hc.Config{
		Pin:         t.opts.Pin,
		StoragePath: t.opts.StoragePath,
	}
	transport, err := hc.NewIPTransport(config, t.Accessory)
	if err != nil {
		return fmt.Errorf("homekit transport: %w", err)
	}
	t.transport = transport
	go transport.Start()
	log.WithField("name", t.opts.Name).Info("homekit accessory advertised")
	return nil
}

// Stop withdraws the accessory and waits for the transport to finish.
func (t *Thermometer) Stop() {
	if t.transport == nil {
		return
	}
	<-t.transport.Stop()
	t.transport = nil
}
