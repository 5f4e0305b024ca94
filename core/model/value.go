package model

// Value is the reading of a single channel.
type Value interface {
	// Components returns the value decomposed into labelled scalars. Scalar
	// values return a single component with an empty label.
	Components() []Component
}

// Component is one scalar part of a Value.
type Component struct {
	Label string
	Value float64
}

// Scalar is a single numeric reading.
type Scalar float64

func (s Scalar) Components() []Component {
	return []Component{{Value: float64(s)}}
}

// Vector is a three-axis reading such as an accelerometer sample.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vector) Components() []Component {
	return []Component{{"x", v.X}, {"y", v.Y}, {"z", v.Z}}
}

// Orientation holds the board attitude in degrees, each angle in [0, 360).
type Orientation struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

func (o Orientation) Components() []Component {
	return []Component{{"pitch", o.Pitch}, {"roll", o.Roll}, {"yaw", o.Yaw}}
}
