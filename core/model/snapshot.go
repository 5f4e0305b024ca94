package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Channel names produced by the Sense HAT.
const (
	ChannelHumidity                = "humidity"
	ChannelTemperature             = "temperature"
	ChannelTemperatureFromPressure = "temperature_from_pressure"
	ChannelPressure                = "pressure"
	ChannelOrientation             = "orientation"
	ChannelCompass                 = "compass"
	ChannelGyroscope               = "gyroscope"
	ChannelAccelerometer           = "accelerometer"
)

// Channel is a named reading inside a Snapshot.
type Channel struct {
	Name  string
	Value Value
}

// Snapshot is one set of channel readings captured at the same time. It is
// immutable once built and keeps the channels in insertion order.
type Snapshot struct {
	capturedAt time.Time
	channels   []Channel
}

// SnapshotBuilder assembles a Snapshot.
type SnapshotBuilder struct {
	capturedAt time.Time
	channels   []Channel
	index      map[string]int
}

// NewSnapshotBuilder starts a snapshot captured at t.
func NewSnapshotBuilder(t time.Time) *SnapshotBuilder {
	return &SnapshotBuilder{capturedAt: t, index: make(map[string]int)}
}

// Set adds a channel. Setting an existing name replaces its value and keeps
// its original position.
func (b *SnapshotBuilder) Set(name string, v Value) *SnapshotBuilder {
	if i, ok := b.index[name]; ok {
		b.channels[i].Value = v
		return b
	}
	b.index[name] = len(b.channels)
	b.channels = append(b.channels, Channel{Name: name, Value: v})
	return b
}

// Build returns the snapshot. The builder may keep being used afterwards
// without affecting the returned value.
func (b *SnapshotBuilder) Build() Snapshot {
	chans := make([]Channel, len(b.channels))
	copy(chans, b.channels)
	return Snapshot{capturedAt: b.capturedAt, channels: chans}
}

// CapturedAt returns the capture time.
func (s Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Len returns the number of channels.
func (s Snapshot) Len() int { return len(s.channels) }

// Channels returns a copy of the channels in insertion order.
func (s Snapshot) Channels() []Channel {
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Get returns the value of the named channel.
func (s Snapshot) Get(name string) (Value, bool) {
	for _, c := range s.channels {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the snapshot as a flat object keyed by channel name,
// preserving insertion order. Composite values are nested objects.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.channels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
