// Package metrics defines the contracts of the metrics outputs: the
// textfile sink that exposes the latest snapshot to a scraper and the
// recorder that tracks the daemon's own cycle outcomes.
package metrics
