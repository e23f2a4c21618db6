package passthrough

import (
	"time"

	"github.com/DarkKowalski/tinyfs/internal/logging"
)

// Event describes one completed call on the operation table.
type Event struct {
	Op       string
	Path     string
	Start    time.Time
	Duration time.Duration
	Bytes    int   // bytes transferred by read and write
	Err      error // nil on success
}

// Tracer receives an Event after every operation. Implementations must be
// safe for concurrent use.
type Tracer interface {
	Trace(ev Event)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(ev Event)

// Trace calls f(ev).
func (f TracerFunc) Trace(ev Event) {
	f(ev)
}

type multiTracer []Tracer

func (m multiTracer) Trace(ev Event) {
	for _, t := range m {
		t.Trace(ev)
	}
}

// Tracers fans events out to every non-nil tracer given.
func Tracers(tracers ...Tracer) Tracer {
	var m multiTracer
	for _, t := range tracers {
		if t != nil {
			m = append(m, t)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

var dataOps = map[string]bool{
	OpOpen:     true,
	OpCreate:   true,
	OpRead:     true,
	OpWrite:    true,
	OpTruncate: true,
	OpFlush:    true,
	OpRelease:  true,
	OpFsync:    true,
}

// LogTracer writes operations to a logger: data operations at info level and
// everything else at debug level. Failures are logged at debug level.
type LogTracer struct {
	logger *logging.Logger
}

// NewLogTracer creates a LogTracer writing to logger.
func NewLogTracer(logger *logging.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Trace implements Tracer.
func (lt *LogTracer) Trace(ev Event) {
	if dataOps[ev.Op] {
		lt.logger.Info("File Operation: %s %s", ev.Op, ev.Path)
	} else {
		lt.logger.Debug("Filesystem Operation: %s %s", ev.Op, ev.Path)
	}

	if ev.Err != nil {
		lt.logger.Debug("Operation %s on %s failed after %v: %v", ev.Op, ev.Path, ev.Duration, ev.Err)
		return
	}
	if ev.Bytes > 0 {
		lt.logger.Trace("Operation %s on %s transferred %d bytes in %v", ev.Op, ev.Path, ev.Bytes, ev.Duration)
	}
}
