package main

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/luki/hotcpu/internal/monitor"
	"github.com/luki/hotcpu/internal/store"
	"github.com/luki/hotcpu/internal/viewer"
)

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:   "monitor",
		Usage:  "live temperature monitor (default)",
		Action: runMonitor,
	}
}

func runMonitor(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}

	// The TUI owns the terminal from here on.
	out := logFile()
	defer out.Close()
	logrus.SetOutput(out)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	tl, err := a.startTempLog(ctx, &wg)
	if err != nil {
		log.WithError(err).Warn("temperature log disabled")
	}
	defer func() {
		cancel()
		wg.Wait()
		if tl != nil {
			tl.Close()
		}
	}()

	s := a.Settings()
	opts := monitor.Options{
		Hidden:     s.HiddenSensorIDs,
		Palette:    a.palette(),
		OnInterval: a.saveInterval,
	}
	if tl != nil {
		opts.Recording = s.LogPath
	}
	return monitor.Run(a.loop, opts)
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "browse the CSV temperature log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "log file, defaults to the configured log path",
			},
		},
		Action: func(c *cli.Context) error {
			_, s := loadSettings(c)
			path := s.LogPath
			if f := c.String("file"); f != "" {
				path = f
			} else if format, _ := store.ParseFormat(s.LogFormat); format != store.CSV {
				return errors.New("the history browser reads CSV logs; set log_format to CSV")
			}

			out := logFile()
			defer out.Close()
			logrus.SetOutput(out)

			return viewer.Run(viewer.Options{
				Path:       path,
				Palette:    palette(s),
				Thresholds: s.Thresholds(),
			})
		},
	}
}
