package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	coremetrics "github.com/kilianp07/pubsense/core/metrics"
	"github.com/kilianp07/pubsense/core/model"
	"github.com/kilianp07/pubsense/infra/logger"
)

// MetricPrefix is prepended to every channel name.
const MetricPrefix = "sense_hat_"

// AxisLabel carries the component name of composite channels.
const AxisLabel = "axis"

const textfileMode os.FileMode = 0o644

var channelHelp = map[string]string{
	model.ChannelHumidity:                "Relative humidity in percent.",
	model.ChannelTemperature:             "Temperature from the humidity sensor in degrees Celsius.",
	model.ChannelTemperatureFromPressure: "Temperature from the pressure sensor in degrees Celsius.",
	model.ChannelPressure:                "Atmospheric pressure in millibars.",
	model.ChannelOrientation:             "Board orientation in degrees.",
	model.ChannelCompass:                 "Magnetic field in microtesla.",
	model.ChannelGyroscope:               "Angular rate in radians per second.",
	model.ChannelAccelerometer:           "Acceleration in g.",
}

// TextfileSink writes each snapshot to a node exporter textfile collector
// file, replacing the previous content.
type TextfileSink struct {
	path string
	log  logger.Logger
}

var _ coremetrics.FileSink = (*TextfileSink)(nil)

// NewTextfileSink returns a sink writing to cfg.TextfilePath().
func NewTextfileSink(cfg coremetrics.Config, log logger.Logger) *TextfileSink {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &TextfileSink{path: cfg.TextfilePath(), log: log}
}

// Path returns the file the sink writes to.
func (s *TextfileSink) Path() string { return s.path }

// Write implements coremetrics.FileSink.
func (s *TextfileSink) Write(snap model.Snapshot) error {
	if err := WriteFile(s.path, snap); err != nil {
		return err
	}
	s.log.Debugf("wrote %d channels to %s", snap.Len(), s.path)
	return nil
}

// WriteFile renders snap and atomically replaces path with the result.
func WriteFile(path string, snap model.Snapshot) error {
	doc, err := Render(snap)
	if err != nil {
		return fmt.Errorf("%w: %w", coremetrics.ErrFileWrite, err)
	}
	if err := renameio.WriteFile(path, doc, textfileMode); err != nil {
		return fmt.Errorf("%w: %w", coremetrics.ErrFileWrite, err)
	}
	return nil
}

// MetricName returns the exposition name of a channel.
func MetricName(channel string) string {
	return MetricPrefix + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		}
		return '_'
	}, channel)
}

// ErrMetricNameCollision is returned by Render when two channels map to the
// same metric name, e.g. "dew-point" and "dew_point".
var ErrMetricNameCollision = errors.New("channels share a metric name")

// Render returns the text exposition of snap: one gauge family per channel
// in snapshot order. Composite values get one sample per axis. A metric name
// collision fails the whole document, so WriteFile leaves the previous file
// in place.
func Render(snap model.Snapshot) ([]byte, error) {
	chans := snap.Channels()
	seen := make(map[string]string, len(chans))
	for _, ch := range chans {
		name := MetricName(ch.Name)
		if other, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q and %q both render as %s", ErrMetricNameCollision, other, ch.Name, name)
		}
		seen[name] = ch.Name
	}
	reg := prometheus.NewRegistry()
	for _, ch := range chans {
		c, err := channelCollector(ch)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	var buf bytes.Buffer
	for _, ch := range chans {
		mf, ok := byName[MetricName(ch.Name)]
		if !ok {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func channelCollector(ch model.Channel) (prometheus.Collector, error) {
	if ch.Value == nil {
		return nil, fmt.Errorf("channel %q has no value", ch.Name)
	}
	opts := prometheus.GaugeOpts{Name: MetricName(ch.Name), Help: help(ch.Name)}
	comps := ch.Value.Components()
	if len(comps) == 1 && comps[0].Label == "" {
		g := prometheus.NewGauge(opts)
		g.Set(comps[0].Value)
		return g, nil
	}
	gv := prometheus.NewGaugeVec(opts, []string{AxisLabel})
	for _, c := range comps {
		gv.WithLabelValues(c.Label).Set(c.Value)
	}
	return gv, nil
}

func help(channel string) string {
	if h, ok := channelHelp[channel]; ok {
		return h
	}
	return "Sense HAT " + strings.ReplaceAll(channel, "_", " ") + " reading."
}
