package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kilianp07/pubsense/config"
	"github.com/kilianp07/pubsense/core/cycle"
	coremqtt "github.com/kilianp07/pubsense/core/mqtt"
	"github.com/kilianp07/pubsense/core/sensor"
	"github.com/kilianp07/pubsense/infra/logger"
	"github.com/kilianp07/pubsense/infra/metrics"
	"github.com/kilianp07/pubsense/infra/mqtt"
	"github.com/kilianp07/pubsense/infra/sensehat"
)

// Board is the sensor board as used by the service.
type Board interface {
	sensor.Reader
	ShowIndicator(ctx context.Context) error
	Close() error
}

// Publisher is the broker connection as used by the service.
type Publisher interface {
	coremqtt.Publisher
	Close() error
}

// Service wires the Sense HAT, the broker and the metrics file into a
// sample cycle and runs it.
type Service struct {
	cfg   *config.Config
	board Board
	pub   Publisher
	cycle *cycle.SampleCycle
	reg   *prometheus.Registry
	log   logger.Logger
}

// New opens the Sense HAT and connects to the broker. Both failures are
// fatal.
func New(cfg *config.Config, root zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	board, err := sensehat.Open(cfg.Sensor, logger.New(root, "sensehat"))
	if err != nil {
		return nil, fmt.Errorf("sense hat: %w", err)
	}
	pub, err := mqtt.NewPahoPublisher(cfg.MQTT, logger.New(root, "mqtt"))
	if err != nil {
		_ = board.Close()
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}
	svc, err := NewWithDeps(cfg, board, pub, root)
	if err != nil {
		_ = pub.Close()
		_ = board.Close()
		return nil, err
	}
	return svc, nil
}

// NewWithDeps builds a Service around an already opened board and publisher.
// Each component logs through root with its own component field.
func NewWithDeps(cfg *config.Config, board Board, pub Publisher, root zerolog.Logger) (*Service, error) {
	log := logger.New(root, "service")
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPromRecorderWithRegistry(reg)
	if err != nil {
		return nil, fmt.Errorf("cycle metrics: %w", err)
	}
	sink := metrics.NewTextfileSink(cfg.Metrics, logger.New(root, "textfile"))
	c, err := cycle.New(board, pub, sink, cfg.MQTT.Topic, logger.New(root, "cycle"),
		cycle.WithTimeouts(cfg.Cycle.SensorTimeout(), cfg.Cycle.PublishTimeout()),
		cycle.WithRecorder(rec),
	)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, board: board, pub: pub, cycle: c, reg: reg, log: log}, nil
}

// Registry returns the registry holding the service's own metrics.
func (s *Service) Registry() *prometheus.Registry { return s.reg }

// Run shows the startup indicator and then runs a single cycle when no
// interval is configured, or cycles until ctx is cancelled otherwise. In
// single-shot mode the cycle error is returned and the /metrics endpoint is
// not started.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Sensor.SkipIndicator {
		if err := s.board.ShowIndicator(ctx); err != nil {
			s.log.Warnf("startup indicator: %v", err)
		}
	}

	interval := s.cfg.Cycle.Interval()
	addr := s.cfg.Metrics.ListenAddr
	if interval == 0 {
		if addr != "" {
			s.log.Warnf("metrics listen address %s ignored in single-shot mode", addr)
		}
		_, err := s.cycle.Run(ctx)
		return err
	}
	if addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, s.reg, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("publishing to %s every %s", s.cfg.MQTT.Topic, interval)
	return s.cycle.Loop(ctx, interval)
}

// Close disconnects from the broker and releases the board.
func (s *Service) Close() error {
	return errors.Join(s.pub.Close(), s.board.Close())
}
