// Package observability reports faults in the polling pipeline to Sentry
// when a DSN is configured. Without one every call is a no-op.
package observability

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// repeatWindow is how long an identical fault is suppressed after it was
// sent once. A broken reader fails on every tick.
const repeatWindow = 10 * time.Minute

var (
	sentryEnabled atomic.Bool
	repeats       = newThrottle(repeatWindow)
)

// Options configure the Sentry client.
type Options struct {
	DSN         string
	Environment string
	Release     string
	// Host names the machine the sensors belong to.
	Host string
}

// InitSentry starts the Sentry client. The returned func flushes pending
// events and must run before exit.
func InitSentry(opts Options) (func(), bool, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		sentryEnabled.Store(false)
		return func() {}, false, nil
	}

	options := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      strings.TrimSpace(opts.Environment),
		Release:          strings.TrimSpace(opts.Release),
		ServerName:       opts.Host,
		AttachStacktrace: true,
	}

	if err := sentry.Init(options); err != nil {
		sentryEnabled.Store(false)
		return func() {}, false, err
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("app", "hotcpu")
		scope.SetContext("sensors", sentry.Context{"host": opts.Host})
	})

	sentryEnabled.Store(true)
	return func() {
		sentry.Flush(2 * time.Second)
	}, true, nil
}

// Fault locates a failure in the pipeline.
type Fault struct {
	// Component is the package that failed: source, aggregate, poller or http.
	Component string
	// Source is the reader name for source faults.
	Source string
	// Route is the HTTP route for API faults.
	Route string
	Extra map[string]interface{}
}

func (f Fault) tags() map[string]string {
	tags := map[string]string{"component": f.Component}
	if f.Source != "" {
		tags["source"] = f.Source
	}
	if f.Route != "" {
		tags["route"] = f.Route
	}
	return tags
}

// fingerprint groups events of the same fault regardless of the
// temperatures or ids embedded in the message.
func (f Fault) fingerprint() []string {
	fp := []string{f.Component}
	if f.Source != "" {
		fp = append(fp, f.Source)
	}
	if f.Route != "" {
		fp = append(fp, f.Route)
	}
	return fp
}

func (f Fault) key(err error) string {
	return strings.Join(append(f.fingerprint(), err.Error()), "\x00")
}

// CaptureFault sends err tagged with where it happened. The same fault is
// sent at most once per repeat window.
func CaptureFault(err error, f Fault) {
	if err == nil || !sentryEnabled.Load() {
		return
	}
	if !repeats.allow(f.key(err), time.Now()) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range f.tags() {
			scope.SetTag(key, value)
		}
		for key, value := range f.Extra {
			scope.SetExtra(key, value)
		}
		scope.SetFingerprint(f.fingerprint())
		sentry.CaptureException(err)
	})
}

func Enabled() bool {
	return sentryEnabled.Load()
}

// throttle remembers when each key was last let through.
type throttle struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func newThrottle(window time.Duration) *throttle {
	return &throttle{window: window, last: make(map[string]time.Time)}
}

func (t *throttle) allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at, ok := t.last[key]; ok && now.Sub(at) < t.window {
		return false
	}
	t.last[key] = now
	for k, at := range t.last {
		if now.Sub(at) >= t.window {
			delete(t.last, k)
		}
	}
	return true
}
