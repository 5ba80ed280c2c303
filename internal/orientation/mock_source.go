// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	phase float64
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that generates a smoothly
// changing arm motion. phase offsets the motion so that several simulated
// devices do not move in lockstep.
func NewMockSource(phase float64) Source {
	return &mockSource{start: time.Now(), phase: phase, now: time.Now}
}

func (m *mockSource) Next() (Quaternion, error) {
	elapsed := m.now().Sub(m.start).Seconds() + m.phase

	deg := math.Pi / 180
	return FromEuler(Euler{
		Roll:  float32(20 * math.Sin(elapsed) * deg),
		Pitch: float32(15 * math.Cos(elapsed*0.7) * deg),
		Yaw:   float32((math.Mod(elapsed*30, 360) - 180) * deg),
	}), nil
}
