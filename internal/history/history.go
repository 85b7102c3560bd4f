// Package history provides a ring-buffer based temperature history
// tracker with per-sensor lifetime min/peak.
package history

import "math"

// DefaultCapacity is the number of readings kept per sensor.
const DefaultCapacity = 30

// Buffer stores a ring buffer of temperature readings for one sensor.
type Buffer struct {
	values []float64
	start  int // index of the oldest value once the buffer is full
	Min    float64
	Peak   float64
}

// NewBuffer creates a new history ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		values: make([]float64, 0, capacity),
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push adds a new temperature reading, evicting the oldest when full.
func (b *Buffer) Push(temp float64) {
	if len(b.values) < cap(b.values) {
		b.values = append(b.values, temp)
	} else {
		b.values[b.start] = temp
		b.start = (b.start + 1) % len(b.values)
	}

	if temp < b.Min {
		b.Min = temp
	}
	if temp > b.Peak {
		b.Peak = temp
	}
}

// Len returns the number of stored readings.
func (b *Buffer) Len() int {
	return len(b.values)
}

// Last returns the most recent temperature, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.values) == 0 {
		return 0
	}
	return b.values[(b.start+len(b.values)-1)%len(b.values)]
}

// Avg returns the average temperature across all stored readings.
func (b *Buffer) Avg() float64 {
	if len(b.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range b.values {
		sum += v
	}
	return sum / float64(len(b.values))
}

// Values returns the stored readings oldest first, as a fresh slice.
func (b *Buffer) Values() []float64 {
	out := make([]float64, 0, len(b.values))
	out = append(out, b.values[b.start:]...)
	return append(out, b.values[:b.start]...)
}

// LastN returns the last n temperature values (for chart rendering).
func (b *Buffer) LastN(n int) []float64 {
	if n <= 0 || len(b.values) == 0 {
		return nil
	}
	vals := b.Values()
	if n < len(vals) {
		vals = vals[len(vals)-n:]
	}
	return vals
}

// Tracker keeps one Buffer per sensor identifier. It is not safe for
// concurrent use; the aggregator owns it and writes from one goroutine.
type Tracker struct {
	data     map[string]*Buffer
	capacity int
}

// NewTracker creates a tracker with the given per-sensor capacity.
func NewTracker(capacity int) *Tracker {
	return &Tracker{
		data:     make(map[string]*Buffer),
		capacity: capacity,
	}
}

// Record appends a reading for the given sensor identifier.
func (t *Tracker) Record(id string, temp float64) {
	b, ok := t.data[id]
	if !ok {
		b = NewBuffer(t.capacity)
		t.data[id] = b
	}
	b.Push(temp)
}

// Snapshot returns the readings recorded for id, oldest first. The slice
// is never touched again by the tracker.
func (t *Tracker) Snapshot(id string) []float64 {
	b, ok := t.data[id]
	if !ok {
		return []float64{}
	}
	return b.Values()
}

// Extremes returns the lifetime min and peak recorded for id.
func (t *Tracker) Extremes(id string) (min, peak float64, ok bool) {
	b, ok := t.data[id]
	if !ok || b.Len() == 0 {
		return 0, 0, false
	}
	return b.Min, b.Peak, true
}

// Get returns the history buffer for a sensor identifier, or nil.
func (t *Tracker) Get(id string) *Buffer {
	return t.data[id]
}

// Len returns the number of tracked identifiers.
func (t *Tracker) Len() int {
	return len(t.data)
}
