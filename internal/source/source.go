// Package source reads raw temperatures from the platform. Every reader is
// fail-soft: an unavailable backend yields no drafts, never an error.
package source

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luki/hotcpu/internal/observability"
	"github.com/luki/hotcpu/internal/sensor"
)

var log = logrus.WithField("component", "source")

// ErrUnavailable is returned by Open when a reader's backend is missing.
var ErrUnavailable = errors.New("source unavailable")

// Source produces the current set of sensor drafts.
type Source interface {
	Name() string
	ProduceReadings() []sensor.Draft
}

// Opener is implemented by sources that need a session before polling.
type Opener interface {
	Open() error
}

// Closer is implemented by sources that hold a session.
type Closer interface {
	Close() error
}

// Collect invokes src and absorbs any panic it raises.
func Collect(src Source) (drafts []sensor.Draft) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("source", src.Name()).Debugf("reader panicked: %v", r)
			observability.CaptureFault(fmt.Errorf("reader panicked: %v", r), observability.Fault{
				Component: "source",
				Source:    src.Name(),
			})
			drafts = nil
		}
	}()
	return src.ProduceReadings()
}

// Runner executes an external command and returns its stdout.
type Runner func(name string, args ...string) ([]byte, error)

const commandTimeout = 5 * time.Second

// ExecRunner runs commands with a fixed timeout so a hung tool cannot
// stall the poll loop.
func ExecRunner(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// lastSegment returns the part of s after its final backslash.
func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '\\'); i >= 0 {
		return s[i+1:]
	}
	return s
}
