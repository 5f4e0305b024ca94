package sensehat

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/pubsense/core/model"
)

// estimateOrientation derives roll and pitch from gravity and a
// tilt-compensated heading from the magnetic field. All angles are in
// degrees in [0, 360).
func estimateOrientation(accel, mag [3]float64) model.Orientation {
	a := r3.Vec{X: accel[0], Y: accel[1], Z: accel[2]}
	m := r3.Vec{X: mag[0], Y: mag[1], Z: mag[2]}

	roll := math.Atan2(a.Y, a.Z)
	pitch := math.Atan2(-a.X, math.Hypot(a.Y, a.Z))

	var yaw float64
	if r3.Norm(a) > 0 {
		up := r3.Unit(a)
		east := r3.Cross(m, up)
		if r3.Norm(east) > 0 {
			east = r3.Unit(east)
			north := r3.Cross(up, east)
			yaw = math.Atan2(east.X, north.X)
		}
	}

	return model.Orientation{
		Pitch: degrees(pitch),
		Roll:  degrees(roll),
		Yaw:   degrees(yaw),
	}
}

func degrees(rad float64) float64 {
	d := math.Mod(rad*180/math.Pi, 360)
	if d < 0 {
		d += 360
	}
	return d
}
