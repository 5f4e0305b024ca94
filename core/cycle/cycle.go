// Package cycle implements the sample cycle: capture one snapshot from the
// sensor board and fan it out to the broker and the metrics file.
package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/pubsense/core/logger"
	"github.com/kilianp07/pubsense/core/metrics"
	"github.com/kilianp07/pubsense/core/model"
	"github.com/kilianp07/pubsense/core/mqtt"
	"github.com/kilianp07/pubsense/core/sensor"
)

// State of a SampleCycle.
type State int

const (
	Idle State = iota
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Publishing:
		return "publishing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of a single Run.
type Result struct {
	Snapshot   model.Snapshot
	PublishErr error
	FileErr    error
}

// SampleCycle owns the sensor reader and the two sinks. Runs never overlap.
type SampleCycle struct {
	reader    sensor.Reader
	publisher mqtt.Publisher
	file      metrics.FileSink
	recorder  metrics.CycleRecorder
	log       logger.Logger
	topic     string

	sensorTimeout  time.Duration
	publishTimeout time.Duration
	now            func() time.Time

	runMu sync.Mutex
	mu    sync.Mutex
	state State
}

// Option customizes a SampleCycle.
type Option func(*SampleCycle)

// WithTimeouts bounds the sensor capture and the publish. Zero disables the
// corresponding bound.
func WithTimeouts(sensorTimeout, publishTimeout time.Duration) Option {
	return func(c *SampleCycle) {
		c.sensorTimeout = sensorTimeout
		c.publishTimeout = publishTimeout
	}
}

// WithRecorder sets the recorder receiving cycle outcomes.
func WithRecorder(r metrics.CycleRecorder) Option {
	return func(c *SampleCycle) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New creates a SampleCycle publishing to topic.
func New(reader sensor.Reader, publisher mqtt.Publisher, file metrics.FileSink, topic string, log logger.Logger, opts ...Option) (*SampleCycle, error) {
	if reader == nil {
		return nil, errors.New("sensor reader is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if file == nil {
		return nil, errors.New("file sink is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	c := &SampleCycle{
		reader:    reader,
		publisher: publisher,
		file:      file,
		recorder:  metrics.NopRecorder{},
		log:       log,
		topic:     topic,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// State returns the current state.
func (c *SampleCycle) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *SampleCycle) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes one cycle. A capture failure skips both sinks and is returned
// as is. Otherwise both sinks are attempted and their failures are joined in
// the returned error.
func (c *SampleCycle) Run(ctx context.Context) (Result, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.setState(Publishing)
	defer c.setState(Idle)

	start := c.now()
	outcome := metrics.CycleOutcome{Start: start}
	defer func() {
		outcome.Duration = c.now().Sub(start)
		if err := c.recorder.RecordCycle(outcome); err != nil {
			c.log.Warnf("record cycle: %v", err)
		}
	}()

	snap, err := c.capture(ctx)
	if err != nil {
		outcome.SensorErr = err
		c.log.Errorf("sensor capture failed, cycle skipped: %v", err)
		return Result{}, err
	}
	c.log.Debugw("snapshot captured", map[string]any{"channels": snap.Len()})

	res := Result{Snapshot: snap}
	res.PublishErr = c.publish(ctx, snap)
	outcome.PublishErr = res.PublishErr

	if err := c.file.Write(snap); err != nil {
		res.FileErr = err
		outcome.FileErr = err
		c.log.Errorf("metrics file write failed: %v", err)
	}
	return res, errors.Join(res.PublishErr, res.FileErr)
}

func (c *SampleCycle) capture(ctx context.Context) (model.Snapshot, error) {
	if c.sensorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sensorTimeout)
		defer cancel()
	}
	type captured struct {
		snap model.Snapshot
		err  error
	}
	done := make(chan captured, 1)
	go func() {
		snap, err := c.reader.Capture(ctx)
		done <- captured{snap, err}
	}()
	select {
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, sensor.ErrSensorUnavailable) {
			r.err = fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, r.err)
		}
		return r.snap, r.err
	case <-ctx.Done():
		return model.Snapshot{}, fmt.Errorf("%w: %w", sensor.ErrSensorUnavailable, ctx.Err())
	}
}

func (c *SampleCycle) publish(ctx context.Context, snap model.Snapshot) error {
	if c.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.publishTimeout)
		defer cancel()
	}
	err := c.publisher.Publish(ctx, c.topic, snap)
	if err == nil {
		return nil
	}
	payload, merr := json.Marshal(snap)
	if merr != nil {
		payload = []byte(merr.Error())
	}
	c.log.Errorw("publish failed", map[string]any{
		"topic":   c.topic,
		"payload": string(payload),
		"error":   err.Error(),
	})
	return err
}

// Loop runs a cycle immediately and then once per interval until the context
// is cancelled. Ticks that fire while a cycle is still running are dropped.
func (c *SampleCycle) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		if _, err := c.Run(ctx); err != nil {
			c.log.Debugf("cycle finished with errors: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
