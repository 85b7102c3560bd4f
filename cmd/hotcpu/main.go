package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/luki/hotcpu/internal/config"
	"github.com/luki/hotcpu/internal/observability"
)

var version = "dev"

func main() {
	var flushSentry func()

	app := &cli.App{
		Name:    "hotcpu",
		Usage:   "hardware temperature monitor",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   config.DefaultPath(),
				Usage:   "settings file",
				EnvVars: []string{"HOTCPU_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "log as JSON",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "refresh interval, overrides the settings file",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogging(c.String("log-level"), c.Bool("log-json"), os.Stderr); err != nil {
				return err
			}
			flush, enabled, err := observability.InitSentry(observability.Options{
				DSN:         os.Getenv("SENTRY_DSN"),
				Environment: os.Getenv("SENTRY_ENVIRONMENT"),
				Release:     version,
				Host:        hostname(),
			})
			if err != nil {
				logrus.WithError(err).Warn("sentry disabled")
			}
			if enabled {
				logrus.Debug("sentry enabled")
			}
			flushSentry = flush
			return nil
		},
		After: func(c *cli.Context) error {
			if flushSentry != nil {
				flushSentry()
			}
			return nil
		},
		Commands: []*cli.Command{
			monitorCommand(),
			runCommand(),
			onceCommand(),
			historyCommand(),
		},
		Action: runMonitor,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "hotcpu: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string, json bool, out io.Writer) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// logFile is where log output goes while a TUI owns the terminal.
func logFile() *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.DataDir(), "hotcpu.log"),
		MaxSize:    5,
		MaxBackups: 3,
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
