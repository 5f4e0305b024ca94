package sensehat

import "fmt"

// Config defines how the Sense HAT is accessed.
type Config struct {
	// I2CBus is the periph bus name; empty selects the first bus.
	I2CBus string `json:"i2c_bus"`
	// Rotation of the LED matrix in degrees: 0, 90, 180 or 270.
	Rotation int `json:"rotation"`
	// LowLight dims the LED matrix.
	LowLight bool `json:"low_light"`
	// Framebuffer overrides the LED matrix device, e.g. /dev/fb1. When empty
	// the device is looked up by name in sysfs.
	Framebuffer string `json:"framebuffer"`
	// SkipIndicator disables the startup indicator on the LED matrix.
	SkipIndicator bool `json:"skip_startup_indicator"`
	// IndicatorMillis is how long the startup indicator stays lit.
	IndicatorMillis int `json:"indicator_millis"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.IndicatorMillis <= 0 {
		c.IndicatorMillis = 1000
	}
}

// Validate checks the rotation.
func (c Config) Validate() error {
	switch c.Rotation {
	case 0, 90, 180, 270:
		return nil
	}
	return fmt.Errorf("rotation must be 0, 90, 180 or 270, got %d", c.Rotation)
}
