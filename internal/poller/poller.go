// Package poller drives the aggregator on a timer and publishes each
// snapshot to subscribers.
package poller

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/observability"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/tier"
)

// DefaultInterval is the refresh interval used until SetInterval is called.
const DefaultInterval = 1000 * time.Millisecond

var (
	ErrRunning         = errors.New("poller already running")
	ErrInvalidInterval = errors.New("interval must be positive")
)

var log = logrus.WithField("component", "poller")

// Aggregator is what the loop polls.
type Aggregator interface {
	Open() error
	Poll(th tier.Thresholds) *sensor.Snapshot
	Close() error
}

// Subscriber receives every published snapshot. It runs on the poll
// goroutine and must hand work off rather than block.
type Subscriber func(*sensor.Snapshot)

// Loop polls an aggregator at a fixed interval. Exactly one goroutine polls
// at a time; snapshots are published by atomic pointer swap.
type Loop struct {
	agg     Aggregator
	current atomic.Pointer[sensor.Snapshot]

	interval atomic.Int64 // nanoseconds
	reset    chan struct{}

	mu         sync.Mutex
	thresholds tier.Thresholds
	subs       []Subscriber
	running    bool
	stop       chan struct{}
	done       chan struct{}
}

// New returns a stopped loop. Current returns a placeholder until Start.
func New(agg Aggregator, th tier.Thresholds) *Loop {
	l := &Loop{
		agg:        agg,
		reset:      make(chan struct{}, 1),
		thresholds: th,
	}
	l.interval.Store(int64(DefaultInterval))
	l.current.Store(sensor.Placeholder(th))
	return l
}

// Start opens the aggregator, publishes one snapshot synchronously and then
// starts ticking. A primary source that fails to open yields a degraded
// first snapshot; later ticks still poll the remaining sources.
func (l *Loop) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	l.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done
	th := l.thresholds
	l.mu.Unlock()

	if err := l.agg.Open(); err != nil {
		log.WithError(err).Warn("primary sensor source unavailable")
		l.publish(sensor.Degraded(err, th, time.Now()))
	} else {
		l.publish(l.agg.Poll(th))
	}

	go l.run(stop, done)
	return nil
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.publish(l.agg.Poll(l.Thresholds()))
		case <-l.reset:
			ticker.Reset(l.Interval())
		case <-stop:
			return
		}
	}
}

// Stop halts the loop, waits for an in-flight poll to finish and closes the
// aggregator. No subscriber is called after Stop returns.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	close(l.stop)
	done := l.done
	l.mu.Unlock()

	<-done
	if err := l.agg.Close(); err != nil {
		return fmt.Errorf("close aggregator: %w", err)
	}
	return nil
}

// SetInterval changes the refresh interval. A running ticker restarts from
// now with the new period.
func (l *Loop) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	l.interval.Store(int64(d))
	select {
	case l.reset <- struct{}{}:
	default:
	}
	return nil
}

// Interval returns the current refresh interval.
func (l *Loop) Interval() time.Duration {
	return time.Duration(l.interval.Load())
}

// SetThresholds replaces the tier thresholds used from the next poll on.
func (l *Loop) SetThresholds(th tier.Thresholds) {
	if err := th.Validate(); err != nil {
		log.WithError(err).Warn("thresholds are not increasing")
	}
	l.mu.Lock()
	l.thresholds = th
	l.mu.Unlock()
}

// Thresholds returns the thresholds applied to the next poll.
func (l *Loop) Thresholds() tier.Thresholds {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thresholds
}

// Subscribe registers fn. Subscribers are called in registration order.
func (l *Loop) Subscribe(fn Subscriber) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// Current returns the most recently published snapshot. It never returns
// nil.
func (l *Loop) Current() *sensor.Snapshot {
	return l.current.Load()
}

func (l *Loop) publish(snap *sensor.Snapshot) {
	l.current.Store(snap)

	l.mu.Lock()
	subs := make([]Subscriber, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for i, fn := range subs {
		notify(i, fn, snap)
	}
}

func notify(i int, fn Subscriber, snap *sensor.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("subscriber", i).Errorf("subscriber panicked: %v", r)
			observability.CaptureFault(fmt.Errorf("subscriber panicked: %v", r), observability.Fault{
				Component: "poller",
				Extra:     map[string]interface{}{"subscriber": i},
			})
		}
	}()
	fn(snap)
}
