package mqtt

import (
	"context"

	"github.com/kilianp07/pubsense/core/model"
)

// Publisher sends snapshots to a message broker topic.
type Publisher interface {
	// Publish serializes the snapshot and publishes it to topic. It returns
	// once the broker client reports completion or the context is done.
	Publish(ctx context.Context, topic string, snap model.Snapshot) error
}
