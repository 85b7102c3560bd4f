package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/luki/hotcpu/internal/aggregate"
	"github.com/luki/hotcpu/internal/chart"
	"github.com/luki/hotcpu/internal/config"
	"github.com/luki/hotcpu/internal/poller"
	"github.com/luki/hotcpu/internal/source"
	"github.com/luki/hotcpu/internal/store"
	"github.com/luki/hotcpu/internal/tier"
)

var log = logrus.WithField("component", "main")

// app holds the settings and the poll loop shared by the commands.
type app struct {
	path string

	mu       sync.Mutex
	settings config.Settings

	loop *poller.Loop
}

func loadSettings(c *cli.Context) (string, config.Settings) {
	path := c.String("config")
	s, err := config.Load(path)
	if err != nil {
		log.WithError(err).Warn("using default settings")
	}
	if d := c.Duration("interval"); d > 0 {
		s.RefreshIntervalMs = int(d / time.Millisecond)
		s.Normalize()
	}
	return path, s
}

func newApp(c *cli.Context) (*app, error) {
	path, s := loadSettings(c)

	agg := aggregate.New(source.Defaults(source.ProbeHostNames()))
	loop := poller.New(agg, s.Thresholds())
	if err := loop.SetInterval(s.Interval()); err != nil {
		return nil, err
	}
	return &app{path: path, settings: s, loop: loop}, nil
}

func (a *app) Settings() config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// update applies fn to the settings and saves them.
func (a *app) update(fn func(*config.Settings)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.settings)
	if err := a.settings.Save(a.path); err != nil {
		log.WithError(err).Warn("save settings")
	}
}

func (a *app) saveInterval(d time.Duration) {
	a.update(func(s *config.Settings) {
		s.RefreshIntervalMs = int(d / time.Millisecond)
	})
}

func (a *app) saveThresholds(th tier.Thresholds) {
	a.update(func(s *config.Settings) { s.SetThresholds(th) })
}

func (a *app) palette() chart.Palette {
	return palette(a.Settings())
}

func palette(s config.Settings) chart.Palette {
	return chart.NewPalette(s.Colors.Cool, s.Colors.Warm, s.Colors.Hot, s.Colors.Critical)
}

func (a *app) logSensorIDs() []string {
	return a.Settings().LogSensorIDs
}

// startTempLog opens the temperature log when it is enabled and writes to
// it until ctx is done. The writer is tracked by wg, so callers wait on wg
// before closing the log. The returned log is nil when logging is off.
func (a *app) startTempLog(ctx context.Context, wg *sync.WaitGroup) (*store.TempLog, error) {
	s := a.Settings()
	if !s.LogEnabled {
		return nil, nil
	}
	format, err := store.ParseFormat(s.LogFormat)
	if err != nil {
		return nil, err
	}
	tl, err := store.NewTempLog(store.Options{
		Path:      s.LogPath,
		Format:    format,
		SensorIDs: s.LogSensorIDs,
		Average:   s.LogAverage,
		Min:       s.LogMin,
		Max:       s.LogMax,
		MaxSizeMB: s.LogMaxSizeMB,
	})
	if err != nil {
		return nil, err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		tl.Run(ctx, s.LogInterval(), a.loop.Current)
	}()
	log.WithField("path", s.LogPath).Info("temperature log enabled")
	return tl, nil
}
