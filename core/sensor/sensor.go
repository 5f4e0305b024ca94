// Package sensor defines the contract of the sensor board.
package sensor

import (
	"context"
	"errors"

	"github.com/kilianp07/pubsense/core/model"
)

// ErrSensorUnavailable is returned when the board cannot produce a reading.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Reader captures a snapshot of every channel the board exposes.
type Reader interface {
	Capture(ctx context.Context) (model.Snapshot, error)
}
