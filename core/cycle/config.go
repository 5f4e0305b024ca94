package cycle

import "time"

// Config defines the sampling schedule and the bounds of each blocking step.
type Config struct {
	// IntervalSeconds between cycles. Zero runs a single cycle.
	IntervalSeconds       int `json:"interval_seconds"`
	SensorTimeoutSeconds  int `json:"sensor_timeout_seconds"`
	PublishTimeoutSeconds int `json:"publish_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SensorTimeoutSeconds <= 0 {
		c.SensorTimeoutSeconds = 5
	}
	if c.PublishTimeoutSeconds <= 0 {
		c.PublishTimeoutSeconds = 10
	}
}

func (c Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c Config) SensorTimeout() time.Duration {
	return time.Duration(c.SensorTimeoutSeconds) * time.Second
}

func (c Config) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutSeconds) * time.Second
}
