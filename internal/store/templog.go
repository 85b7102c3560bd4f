// Package store persists selected sensor temperatures to a size-rotated log
// file in CSV, JSON or plain text, and reads CSV logs back.
package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/luki/hotcpu/internal/sensor"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	megabyte   = 1024 * 1024
)

// Format is the on-disk layout of the temperature log.
type Format string

const (
	CSV  Format = "CSV"
	JSON Format = "JSON"
	TXT  Format = "TXT"
)

// ParseFormat accepts a format name in any case. Unknown names are an
// error.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case CSV, JSON, TXT:
		return f, nil
	default:
		return CSV, fmt.Errorf("unknown log format %q", s)
	}
}

// Options configure a TempLog.
type Options struct {
	Path      string
	Format    Format
	SensorIDs []string
	Average   bool
	Min       bool
	Max       bool
	MaxSizeMB int
}

var log = logrus.WithField("component", "store")

// TempLog appends one entry per interval with the temperatures of the
// selected sensors and, optionally, their average, min and max.
type TempLog struct {
	mu     sync.Mutex
	opts   Options
	out    *sizedWriter
	header []string
	closed bool
}

// ErrClosed is returned by Write once the log has been closed.
var ErrClosed = errors.New("temperature log closed")

// sizedWriter mirrors lumberjack's size accounting so the log can tell
// when a write is about to land in a freshly rotated file.
type sizedWriter struct {
	out    io.WriteCloser
	path   string
	max    int64
	size   int64
	opened bool
}

// fresh reports whether a write of n bytes starts a new, empty file.
func (w *sizedWriter) fresh(n int) bool {
	if !w.opened {
		info, err := os.Stat(w.path)
		if err != nil || info.Size() == 0 {
			return true
		}
		return info.Size()+int64(n) >= w.max
	}
	return w.size == 0 || w.size+int64(n) > w.max
}

func (w *sizedWriter) Write(p []byte) (int, error) {
	if w.fresh(len(p)) {
		w.size = 0
	} else if !w.opened {
		if info, err := os.Stat(w.path); err == nil {
			w.size = info.Size()
		}
	}
	w.opened = true
	n, err := w.out.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *sizedWriter) Close() error {
	w.opened = false
	w.size = 0
	return w.out.Close()
}

// NewTempLog opens a log at opts.Path, creating its directory.
func NewTempLog(opts Options) (*TempLog, error) {
	if opts.Path == "" {
		return nil, errors.New("temperature log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if opts.Format == "" {
		opts.Format = CSV
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	return &TempLog{
		opts: opts,
		out: &sizedWriter{
			out: &lumberjack.Logger{
				Filename:   opts.Path,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: 5,
			},
			path: opts.Path,
			max:  int64(opts.MaxSizeMB) * megabyte,
		},
	}, nil
}

// Update replaces the selection and statistics options. Path, format and
// size stay as opened.
func (l *TempLog) Update(opts Options) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts.SensorIDs = opts.SensorIDs
	l.opts.Average, l.opts.Min, l.opts.Max = opts.Average, opts.Min, opts.Max
}

// Write appends an entry for snap. Nothing is written when none of the
// selected sensors is present.
func (l *TempLog) Write(snap *sensor.Snapshot, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	entries := snap.Select(l.opts.SensorIDs)
	if len(entries) == 0 {
		return nil
	}
	stats, _ := sensor.Summarize(entries)

	var buf bytes.Buffer
	var err error
	switch l.opts.Format {
	case JSON:
		err = l.encodeJSON(&buf, at, entries, stats)
	case TXT:
		l.encodeTXT(&buf, at, entries, stats)
	default:
		err = l.encodeCSV(&buf, at, entries, stats)
	}
	if err != nil {
		return err
	}
	if _, err := l.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write temperature log: %w", err)
	}
	return nil
}

type jsonEntry struct {
	Timestamp string         `json:"timestamp"`
	Sensors   []sensor.Entry `json:"sensors"`
	Average   *float64       `json:"average,omitempty"`
	Min       *float64       `json:"min,omitempty"`
	Max       *float64       `json:"max,omitempty"`
}

func (l *TempLog) encodeJSON(w io.Writer, at time.Time, entries []sensor.Entry, stats sensor.Stats) error {
	e := jsonEntry{Timestamp: at.Format(timeLayout), Sensors: entries}
	if l.opts.Average {
		e.Average = &stats.Average
	}
	if l.opts.Min {
		e.Min = &stats.Min
	}
	if l.opts.Max {
		e.Max = &stats.Max
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	return nil
}

func (l *TempLog) statColumns(stats sensor.Stats) ([]string, []float64) {
	var names []string
	var values []float64
	if l.opts.Average {
		names, values = append(names, "Average"), append(values, stats.Average)
	}
	if l.opts.Min {
		names, values = append(names, "Min"), append(values, stats.Min)
	}
	if l.opts.Max {
		names, values = append(names, "Max"), append(values, stats.Max)
	}
	return names, values
}

// encodeCSV writes a header row whenever the row lands in a new file,
// including one lumberjack is about to rotate in, or the column set changed
// since the last entry.
func (l *TempLog) encodeCSV(w io.Writer, at time.Time, entries []sensor.Entry, stats sensor.Stats) error {
	header := []string{"time"}
	row := []string{at.Format(timeLayout)}
	for _, e := range entries {
		header = append(header, e.ID)
		row = append(row, fmt.Sprintf("%.1f", e.Temp))
	}
	names, values := l.statColumns(stats)
	for i, n := range names {
		header = append(header, n)
		row = append(row, fmt.Sprintf("%.1f", values[i]))
	}

	headerBytes, err := csvLine(header)
	if err != nil {
		return err
	}
	rowBytes, err := csvLine(row)
	if err != nil {
		return err
	}
	if !sameColumns(header, l.header) || l.out.fresh(len(rowBytes)) {
		w.Write(headerBytes)
		l.header = header
	}
	_, err = w.Write(rowBytes)
	return err
}

func csvLine(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(fields)
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("encode log row: %w", err)
	}
	return buf.Bytes(), nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l *TempLog) encodeTXT(w io.Writer, at time.Time, entries []sensor.Entry, stats sensor.Stats) {
	parts := make([]string, 0, len(entries)+3)
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s: %.1f°C", e.Name, e.Temp))
	}
	names, values := l.statColumns(stats)
	for i, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %.1f°C", n, values[i]))
	}
	fmt.Fprintf(w, "[%s] %s\n", at.Format(timeLayout), strings.Join(parts, ", "))
}

// Run writes current() every interval until ctx is done. Write errors are
// logged and do not stop the loop.
func (l *TempLog) Run(ctx context.Context, interval time.Duration, current func() *sensor.Snapshot) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			snap := current()
			if snap == nil || snap.Degraded() {
				continue
			}
			if err := l.Write(snap, now); errors.Is(err, ErrClosed) {
				return
			} else if err != nil {
				log.WithError(err).Warn("temperature log write failed")
			}
		}
	}
}

// Close closes the underlying file.
func (l *TempLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}
