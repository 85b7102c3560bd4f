package source

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/luki/hotcpu/internal/sensor"
)

// NvidiaSMI reads NVIDIA GPU core and memory temperatures via nvidia-smi.
type NvidiaSMI struct {
	Run      Runner
	LookPath func(file string) (string, error)
	loaded   bool
}

func (n *NvidiaSMI) Name() string {
	return "nvidia-smi"
}

// Open checks that nvidia-smi is installed.
func (n *NvidiaSMI) Open() error {
	lookPath := n.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("nvidia-smi"); err != nil {
		return fmt.Errorf("nvidia-smi: %w", ErrUnavailable)
	}
	n.loaded = true
	return nil
}

// Close stops further queries.
func (n *NvidiaSMI) Close() error {
	n.loaded = false
	return nil
}

// gpuTargets are the nvidia-smi columns read per GPU, after index and name.
var gpuTargets = []string{"GPU Core", "Memory"}

func (n *NvidiaSMI) ProduceReadings() []sensor.Draft {
	if !n.loaded {
		return nil
	}
	run := n.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run("nvidia-smi",
		"--query-gpu=index,name,temperature.gpu,temperature.memory",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		log.WithError(err).Debug("nvidia-smi query failed")
		return nil
	}
	return parseNvidiaCSV(string(out))
}

func parseNvidiaCSV(out string) []sensor.Draft {
	var drafts []sensor.Draft
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(strings.TrimSpace(line), ", ")
		if len(parts) < 2+len(gpuTargets) {
			continue
		}
		idx := strings.TrimSpace(parts[0])
		cols := parts[len(parts)-len(gpuTargets):]
		name := strings.TrimSpace(strings.Join(parts[1:len(parts)-len(gpuTargets)], ", "))

		for i, target := range gpuTargets {
			temp, err := strconv.ParseFloat(strings.TrimSpace(cols[i]), 64)
			if err != nil || !sensor.ValidChip(temp) {
				continue
			}
			drafts = append(drafts, sensor.Draft{
				GroupID:  "nvidia-gpu-" + idx,
				Group:    name,
				Category: sensor.GPU,
				ID:       "nvsmi/" + idx + "/" + target,
				Name:     name + " - " + target,
				Temp:     temp,
			})
		}
	}
	return drafts
}
