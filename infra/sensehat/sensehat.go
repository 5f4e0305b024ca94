// Package sensehat reads the Raspberry Pi Sense HAT over I2C and drives its
// LED matrix.
package sensehat

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/kilianp07/pubsense/core/model"
	"github.com/kilianp07/pubsense/core/sensor"
	"github.com/kilianp07/pubsense/infra/logger"
)

var sysfsGraphics = "/sys/class/graphics"

// envChip returns two readings from one chip, e.g. humidity and temperature.
type envChip interface {
	sense() (float64, float64, error)
}

type imuChip interface {
	sense() (imuSample, error)
}

// Board is an opened Sense HAT.
type Board struct {
	mu       sync.Mutex
	humidity envChip
	pressure envChip
	imu      imuChip
	disp     *display
	bus      io.Closer
	log      logger.Logger
	now      func() time.Time
	indicate time.Duration
}

var _ sensor.Reader = (*Board)(nil)

// Open registers the host drivers, opens the configured I2C bus and
// initialises every chip of the board.
func Open(cfg Config, log logger.Logger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", sensor.ErrSensorUnavailable, err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("%w: open i2c bus %q: %w", sensor.ErrSensorUnavailable, cfg.I2CBus, err)
	}
	b, err := NewBoard(bus, cfg, log)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	b.bus = bus
	log.Infof("sense hat opened on %s", bus)
	return b, nil
}

// NewBoard initialises the chips on an already opened bus.
func NewBoard(bus i2c.Bus, cfg Config, log logger.Logger) (*Board, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	hum, err := newHTS221(bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	pres, err := newLPS25H(bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	imu, err := newLSM9DS1(bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	return &Board{
		humidity: hum,
		pressure: pres,
		imu:      imu,
		disp:     openDisplay(cfg, log),
		log:      log,
		now:      time.Now,
		indicate: time.Duration(cfg.IndicatorMillis) * time.Millisecond,
	}, nil
}

func openDisplay(cfg Config, log logger.Logger) *display {
	path := cfg.Framebuffer
	if path == "" {
		p, err := findFramebuffer(sysfsGraphics)
		if err != nil {
			log.Warnf("LED matrix disabled: %v", err)
			return nil
		}
		path = p
	}
	return &display{path: path, rotation: cfg.Rotation, lowLight: cfg.LowLight}
}

// Capture reads every sensor and returns the readings in a fixed channel
// order.
func (b *Board) Capture(ctx context.Context) (model.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	at := b.now()

	humidity, temperature, err := b.humidity.sense()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	pressure, pressureTemp, err := b.pressure.sense()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}
	s, err := b.imu.sense()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, err)
	}

	snap := model.NewSnapshotBuilder(at).
		Set(model.ChannelHumidity, model.Scalar(humidity)).
		Set(model.ChannelTemperature, model.Scalar(temperature)).
		Set(model.ChannelTemperatureFromPressure, model.Scalar(pressureTemp)).
		Set(model.ChannelPressure, model.Scalar(pressure)).
		Set(model.ChannelOrientation, estimateOrientation(s.accel, s.mag)).
		Set(model.ChannelCompass, vector(s.mag)).
		Set(model.ChannelGyroscope, vector(s.gyro)).
		Set(model.ChannelAccelerometer, vector(s.accel)).
		Build()
	b.log.Debugf("captured %d channels", snap.Len())
	return snap, nil
}

// ShowIndicator lights an arrow on the LED matrix, waits and clears it. It
// is a no-op when the board has no LED matrix.
func (b *Board) ShowIndicator(ctx context.Context) error {
	if b.disp == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.disp.setPixels(arrow(RGB{G: 255})); err != nil {
		return err
	}
	t := time.NewTimer(b.indicate)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return b.disp.clear()
}

// Close releases the I2C bus.
func (b *Board) Close() error {
	if b.bus == nil {
		return nil
	}
	return b.bus.Close()
}

func vector(v [3]float64) model.Vector {
	return model.Vector{X: v[0], Y: v[1], Z: v[2]}
}
