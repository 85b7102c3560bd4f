package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sample is one value of one column of a CSV temperature log.
type Sample struct {
	Time   time.Time
	Column string
	Temp   float64
}

// LoadFile reads every sample from a CSV temperature log. A header row may
// appear again mid-file when the logged sensors changed; it replaces the
// column names from then on.
func LoadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var (
		samples []Sample
		columns []string
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return samples, fmt.Errorf("read %s: %w", path, err)
		}
		if len(row) == 0 {
			continue
		}
		if row[0] == "time" {
			columns = row
			continue
		}
		if columns == nil {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}
		for i := 1; i < len(row) && i < len(columns); i++ {
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				continue
			}
			samples = append(samples, Sample{Time: t, Column: columns[i], Temp: v})
		}
	}
	return samples, nil
}

// ListLogs returns the CSV log at path followed by its rotated backups,
// newest first. Missing files are skipped.
func ListLogs(path string) ([]string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	prefix := strings.TrimSuffix(filepath.Base(path), ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		backups = append(backups, filepath.Join(dir, name))
	}
	// Backup names embed their rotation time, so lexical order is
	// chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))

	var logs []string
	if _, err := os.Stat(path); err == nil {
		logs = append(logs, path)
	}
	return append(logs, backups...), nil
}
