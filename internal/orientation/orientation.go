// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Quaternion is a unit orientation quaternion as delivered by the wearables.
type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Identity is the zero rotation.
var Identity = Quaternion{W: 1}

// Euler holds roll, pitch and yaw in radians.
type Euler struct {
	Roll  float32 `json:"roll"`
	Pitch float32 `json:"pitch"`
	Yaw   float32 `json:"yaw"`
}

// Source is anything that can provide orientations over time.
type Source interface {
	Next() (Quaternion, error)
}

// ToEuler converts a unit quaternion to roll/pitch/yaw:
//
//	roll  = atan2(2(w·x + y·z), 1 − 2(x² + y²))
//	pitch = asin(clamp(2(w·y − z·x), −1, 1))
//	yaw   = atan2(2(w·z + x·y), 1 − 2(y² + z²))
//
// All arithmetic happens in float64; only the result is narrowed to float32.
// Near the poles rounding can push the asin argument slightly past ±1, so it
// is clamped rather than producing NaN.
func ToEuler(q Quaternion) Euler {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch := math.Asin(clamp(2*(w*y-z*x), -1, 1))
	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Euler{
		Roll:  float32(roll),
		Pitch: float32(pitch),
		Yaw:   float32(yaw),
	}
}

// FromEuler is the inverse of ToEuler for pitch within [-π/2, π/2].
func FromEuler(e Euler) Quaternion {
	cr, sr := math.Cos(float64(e.Roll)/2), math.Sin(float64(e.Roll)/2)
	cp, sp := math.Cos(float64(e.Pitch)/2), math.Sin(float64(e.Pitch)/2)
	cy, sy := math.Cos(float64(e.Yaw)/2), math.Sin(float64(e.Yaw)/2)

	return Quaternion{
		X: float32(sr*cp*cy - cr*sp*sy),
		Y: float32(cr*sp*cy + sr*cp*sy),
		Z: float32(cr*cp*sy - sr*sp*cy),
		W: float32(cr*cp*cy + sr*sp*sy),
	}
}

// TiltFromAccel computes roll and pitch from accelerometer data only.
// Yaw is 0 because gravity carries no heading information.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(ax, ay, az float64) Euler {
	return Euler{
		Roll:  float32(math.Atan2(ay, az)),
		Pitch: float32(math.Atan2(-ax, math.Sqrt(ay*ay+az*az))),
	}
}

// Norm returns the quaternion length.
func (q Quaternion) Norm() float64 {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)
	return math.Sqrt(x*x + y*y + z*z + w*w)
}

// Degrees returns the angles converted to degrees, for display.
func (e Euler) Degrees() (roll, pitch, yaw float64) {
	return float64(e.Roll) * 180.0 / math.Pi,
		float64(e.Pitch) * 180.0 / math.Pi,
		float64(e.Yaw) * 180.0 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
