package mqtt

import "errors"

var (
	// ErrBrokerConnect is returned when the initial broker connection fails.
	ErrBrokerConnect = errors.New("broker connect failed")
	// ErrPublish is returned when the broker client reports a publish failure.
	ErrPublish = errors.New("publish failed")
	// ErrPublishTimeout is returned when a publish does not complete in time.
	ErrPublishTimeout = errors.New("timeout waiting for publish")
)
