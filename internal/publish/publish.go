// Package publish pushes snapshots to a NATS JetStream subject.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/tier"
)

var log = logrus.WithField("component", "publish")

// DefaultSubject is used when none is configured.
const DefaultSubject = "hotcpu.reading"

// JetStream is the publishing half of nats.JetStreamContext.
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Message is the JSON payload published for every snapshot.
type Message struct {
	InstanceID  string         `json:"instance_id"`
	SystemName  string         `json:"system_name"`
	Time        time.Time      `json:"time"`
	Temperature float64        `json:"temperature"`
	Name        string         `json:"name"`
	Tier        tier.Tier      `json:"tier"`
	Sensors     []sensor.Entry `json:"sensors"`
	Error       string         `json:"error,omitempty"`
}

// Publisher forwards snapshots to JetStream from its own goroutine so the
// poll loop never waits on the broker.
type Publisher struct {
	js       JetStream
	nc       *nats.Conn
	subject  string
	instance string
	system   string
	pending  chan *sensor.Snapshot
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("hotcpu"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	p := New(js, subject)
	p.nc = nc
	return p, nil
}

// New returns a publisher over an existing JetStream context.
func New(js JetStream, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	system, err := os.Hostname()
	if err != nil {
		system = "unknown"
	}
	return &Publisher{
		js:       js,
		subject:  subject,
		instance: uuid.NewString(),
		system:   system,
		pending:  make(chan *sensor.Snapshot, 1),
	}
}

// InstanceID identifies this process in every published message.
func (p *Publisher) InstanceID() string { return p.instance }

// Update queues snap for publishing, replacing a queued one that has not
// been sent yet. It never blocks.
func (p *Publisher) Update(snap *sensor.Snapshot) {
	for {
		select {
		case p.pending <- snap:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run publishes queued snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	log.WithField("subject", p.subject).Info("publishing snapshots")
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-p.pending:
			if err := p.Publish(snap); err != nil {
				log.WithError(err).Warn("publish failed")
			}
		}
	}
}

// Publish sends one snapshot synchronously.
func (p *Publisher) Publish(snap *sensor.Snapshot) error {
	data, err := json.Marshal(p.message(snap))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := p.js.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	log.WithField("subject", p.subject).Debug("published snapshot")
	return nil
}

func (p *Publisher) message(snap *sensor.Snapshot) Message {
	msg := Message{
		InstanceID:  p.instance,
		SystemName:  p.system,
		Time:        snap.Time,
		Temperature: snap.Temperature,
		Name:        snap.Name,
		Tier:        snap.Tier(),
		Sensors:     []sensor.Entry{},
		Error:       snap.Err,
	}
	for _, g := range snap.Groups {
		for _, r := range g.Sensors {
			msg.Sensors = append(msg.Sensors, sensor.Entry{ID: r.ID, Name: r.Name, Temp: r.Temp})
		}
	}
	return msg
}

// Close drains the connection when the publisher owns one.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
