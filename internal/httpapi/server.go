// Package httpapi exposes the latest snapshot and the poll-loop controls
// over HTTP.
package httpapi

import (
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/config"
	"github.com/luki/hotcpu/internal/observability"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/tier"
)

var log = logrus.WithField("component", "httpapi")

// Loop is the part of the poll loop served over HTTP.
type Loop interface {
	Current() *sensor.Snapshot
	SetInterval(d time.Duration) error
	Interval() time.Duration
	SetThresholds(th tier.Thresholds)
	Thresholds() tier.Thresholds
}

// Hooks are called after a setting was changed through the API, so the
// caller can persist it.
type Hooks struct {
	OnInterval   func(time.Duration)
	OnThresholds func(tier.Thresholds)
}

type Server struct {
	loop       Loop
	hooks      Hooks
	defaultIDs func() []string
}

// NewServer serves loop. defaultIDs supplies the sensor selection for
// /log requests that name none; it may be nil.
func NewServer(loop Loop, hooks Hooks, defaultIDs func() []string) *Server {
	return &Server{loop: loop, hooks: hooks, defaultIDs: defaultIDs}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.GetHealth)
	e.GET("/reading", s.GetReading)
	e.GET("/log", s.GetLog)
	e.PUT("/interval", s.PutInterval)
	e.PUT("/thresholds", s.PutThresholds)
}

// NewEcho builds the echo instance with the middleware stack and the API
// routes registered.
func NewEcho(s *Server, sentryEnabled bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader: echo.HeaderXRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Request().Header.Set(echo.HeaderXRequestID, id)
		},
	}))
	if sentryEnabled {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}
	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				observability.CaptureFault(err, observability.Fault{
					Component: "http",
					Route:     c.Path(),
					Extra: map[string]interface{}{
						"method": c.Request().Method,
						"uri":    c.Request().RequestURI,
					},
				})
			}
			return err
		}
	})
	s.Register(e)
	return e
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		log.WithFields(logrus.Fields{
			"request_id": c.Request().Header.Get(echo.HeaderXRequestID),
			"method":     c.Request().Method,
			"uri":        c.Request().RequestURI,
			"status":     c.Response().Status,
			"latency":    time.Since(start).String(),
		}).Debug("request")
		return err
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type readingResponse struct {
	*sensor.Snapshot
	Tier       tier.Tier `json:"tier"`
	Rounded    int       `json:"rounded"`
	Summary    string    `json:"summary"`
	IntervalMS int64     `json:"interval_ms"`
}

type logResponse struct {
	Time    time.Time      `json:"time"`
	Entries []sensor.Entry `json:"entries"`
	Stats   *sensor.Stats  `json:"stats,omitempty"`
}

type intervalRequest struct {
	IntervalMS int64 `json:"interval_ms"`
}

func (s *Server) GetHealth(ctx echo.Context) error {
	snap := s.loop.Current()
	status := "ok"
	switch {
	case snap.Time.IsZero():
		status = "starting"
	case snap.Degraded():
		status = "degraded"
	}
	return ctx.JSON(nethttp.StatusOK, healthResponse{Status: status, Time: snap.Time})
}

func (s *Server) GetReading(ctx echo.Context) error {
	snap := s.loop.Current()
	return ctx.JSON(nethttp.StatusOK, readingResponse{
		Snapshot:   snap,
		Tier:       snap.Tier(),
		Rounded:    snap.Rounded(),
		Summary:    snap.Summary(),
		IntervalMS: s.loop.Interval().Milliseconds(),
	})
}

// GetLog returns the selected sensors flattened, with aggregate stats when
// stats=true. Without ids the configured log selection is used, and without
// that every sensor.
func (s *Server) GetLog(ctx echo.Context) error {
	snap := s.loop.Current()
	ids := splitIDs(ctx.QueryParam("ids"))
	if len(ids) == 0 && s.defaultIDs != nil {
		ids = s.defaultIDs()
	}
	var entries []sensor.Entry
	if len(ids) == 0 {
		entries = allEntries(snap)
	} else {
		entries = snap.Select(ids)
	}
	if entries == nil {
		entries = []sensor.Entry{}
	}

	resp := logResponse{Time: snap.Time, Entries: entries}
	if ctx.QueryParam("stats") == "true" {
		if stats, ok := sensor.Summarize(entries); ok {
			resp.Stats = &stats
		}
	}
	return ctx.JSON(nethttp.StatusOK, resp)
}

func (s *Server) PutInterval(ctx echo.Context) error {
	var req intervalRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(nethttp.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	if req.IntervalMS < config.MinRefresh.Milliseconds() || req.IntervalMS > config.MaxRefresh.Milliseconds() {
		return ctx.JSON(nethttp.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("interval_ms must be between %d and %d", config.MinRefresh.Milliseconds(), config.MaxRefresh.Milliseconds()),
		})
	}
	d := time.Duration(req.IntervalMS) * time.Millisecond
	if err := s.loop.SetInterval(d); err != nil {
		return ctx.JSON(nethttp.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if s.hooks.OnInterval != nil {
		s.hooks.OnInterval(d)
	}
	log.WithField("interval", d).Info("refresh interval changed")
	return ctx.NoContent(nethttp.StatusNoContent)
}

func (s *Server) PutThresholds(ctx echo.Context) error {
	var th tier.Thresholds
	if err := ctx.Bind(&th); err != nil {
		return ctx.JSON(nethttp.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	if err := th.Validate(); err != nil {
		return ctx.JSON(nethttp.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	s.loop.SetThresholds(th)
	if s.hooks.OnThresholds != nil {
		s.hooks.OnThresholds(th)
	}
	log.WithField("thresholds", th).Info("thresholds changed")
	return ctx.JSON(nethttp.StatusOK, th)
}

func allEntries(snap *sensor.Snapshot) []sensor.Entry {
	var out []sensor.Entry
	for _, g := range snap.Groups {
		for _, r := range g.Sensors {
			out = append(out, sensor.Entry{ID: r.ID, Name: r.Name, Temp: r.Temp})
		}
	}
	return out
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// NewHTTPServer wraps handler in a server with the read-header timeout set.
func NewHTTPServer(addr string, handler nethttp.Handler) *nethttp.Server {
	return &nethttp.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
