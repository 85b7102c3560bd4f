package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/urfave/cli/v2"

	"github.com/luki/hotcpu/internal/config"
	"github.com/luki/hotcpu/internal/homekit"
	"github.com/luki/hotcpu/internal/httpapi"
	"github.com/luki/hotcpu/internal/observability"
	"github.com/luki/hotcpu/internal/publish"
	"github.com/luki/hotcpu/internal/store"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "headless daemon: poll loop, temperature log, HTTP API, optional NATS and HomeKit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP listen address, overrides the settings file; \"off\" disables",
			},
			&cli.StringFlag{
				Name:  "nats-url",
				Usage: "NATS server URL, overrides the settings file",
			},
			&cli.BoolFlag{
				Name:  "homekit",
				Usage: "advertise a HomeKit thermometer",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			s := a.Settings()
			if v := c.String("http-addr"); v != "" {
				s.HTTPAddr = v
			}
			if s.HTTPAddr == "off" {
				s.HTTPAddr = ""
			}
			if v := c.String("nats-url"); v != "" {
				s.NatsURL = v
			}
			if c.Bool("homekit") {
				s.HomeKit.Enabled = true
			}

			prg := &program{app: a, httpAddr: s.HTTPAddr, natsURL: s.NatsURL, natsSubject: s.NatsSubject, homeKit: s.HomeKit}
			svc, err := service.New(prg, &service.Config{
				Name:        "hotcpu",
				DisplayName: "hotcpu temperature monitor",
				Description: "Polls hardware temperature sensors and serves them over HTTP.",
			})
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

// program runs the daemon under the service manager, or in the foreground
// until interrupted.
type program struct {
	app         *app
	httpAddr    string
	natsURL     string
	natsSubject string
	homeKit     config.HomeKit

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	server  *http.Server
	pub     *publish.Publisher
	thermo  *homekit.Thermometer
	tempLog *store.TempLog
}

// Start brings up every consumer, then the poll loop. It must not block.
func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	loop := p.app.loop

	tl, err := p.app.startTempLog(ctx, &p.wg)
	if err != nil {
		log.WithError(err).Warn("temperature log disabled")
	}
	p.tempLog = tl

	if p.natsURL != "" {
		pub, err := publish.Connect(p.natsURL, p.natsSubject)
		if err != nil {
			log.WithError(err).Warn("nats publisher disabled")
		} else {
			p.pub = pub
			loop.Subscribe(pub.Update)
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				pub.Run(ctx)
			}()
		}
	}

	if p.homeKit.Enabled {
		thermo := homekit.New(homekit.Options{
			Pin:         p.homeKit.Pin,
			StoragePath: p.homeKit.StoragePath,
			SensorIDs:   p.app.Settings().TraySensorIDs,
		})
		if err := thermo.Start(); err != nil {
			log.WithError(err).Warn("homekit disabled")
		} else {
			p.thermo = thermo
			loop.Subscribe(thermo.Update)
		}
	}

	if err := loop.Start(); err != nil {
		cancel()
		return err
	}

	if p.httpAddr != "" {
		api := httpapi.NewServer(loop, httpapi.Hooks{
			OnInterval:   p.app.saveInterval,
			OnThresholds: p.app.saveThresholds,
		}, p.app.logSensorIDs)
		p.server = httpapi.NewHTTPServer(p.httpAddr, httpapi.NewEcho(api, observability.Enabled()))
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			log.WithField("addr", p.httpAddr).Info("http api listening")
			if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http api stopped")
				observability.CaptureFault(err, observability.Fault{Component: "http"})
			}
		}()
	}

	log.WithField("interval", loop.Interval()).Info("hotcpu running")
	return nil
}

// Stop shuts the consumers down after the poll loop has stopped.
func (p *program) Stop(s service.Service) error {
	var errs []error
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, p.server.Shutdown(ctx))
		cancel()
	}
	errs = append(errs, p.app.loop.Stop())
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if p.thermo != nil {
		p.thermo.Stop()
	}
	if p.pub != nil {
		errs = append(errs, p.pub.Close())
	}
	if p.tempLog != nil {
		errs = append(errs, p.tempLog.Close())
	}
	log.Info("hotcpu stopped")
	return errors.Join(errs...)
}
