package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/pubsense/core/model"
)

// ErrFileWrite is returned when the exposition file cannot be written.
var ErrFileWrite = errors.New("metrics file write failed")

// FileSink persists the latest snapshot for a pull-based scraper.
type FileSink interface {
	Write(snap model.Snapshot) error
}

// CycleOutcome summarizes one sample cycle.
type CycleOutcome struct {
	Start      time.Time
	Duration   time.Duration
	SensorErr  error
	PublishErr error
	FileErr    error
}

// Succeeded reports whether every step of the cycle completed.
func (o CycleOutcome) Succeeded() bool {
	return o.SensorErr == nil && o.PublishErr == nil && o.FileErr == nil
}

// CycleRecorder records cycle outcomes for observability purposes.
type CycleRecorder interface {
	RecordCycle(o CycleOutcome) error
}

// NopRecorder is a CycleRecorder that does nothing.
type NopRecorder struct{}

// RecordCycle implements CycleRecorder.
func (NopRecorder) RecordCycle(CycleOutcome) error { return nil }
