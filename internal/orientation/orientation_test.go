// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"testing"
	"time"
)

const tolerance = 1e-5

func near(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < tolerance
}

func finite(e Euler) bool {
	for _, v := range []float32{e.Roll, e.Pitch, e.Yaw} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func TestToEulerIdentity(t *testing.T) {
	e := ToEuler(Identity)
	if !near(e.Roll, 0) || !near(e.Pitch, 0) || !near(e.Yaw, 0) {
		t.Errorf("ToEuler(identity) = %+v, want all zero", e)
	}
}

func TestToEulerSingleAxis(t *testing.T) {
	half := float32(math.Sqrt2 / 2)
	tests := []struct {
		name string
		q    Quaternion
		want Euler
	}{
		{"roll 90", Quaternion{X: half, W: half}, Euler{Roll: math.Pi / 2}},
		{"yaw 90", Quaternion{Z: half, W: half}, Euler{Yaw: math.Pi / 2}},
		{"yaw 180", Quaternion{Z: 1}, Euler{Yaw: math.Pi}},
		{"pitch -45", Quaternion{Y: float32(-math.Sin(math.Pi / 8)), W: float32(math.Cos(math.Pi / 8))}, Euler{Pitch: -math.Pi / 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToEuler(tt.q)
			if !near(got.Roll, tt.want.Roll) || !near(got.Pitch, tt.want.Pitch) || !near(got.Yaw, tt.want.Yaw) {
				t.Errorf("ToEuler(%+v) = %+v, want %+v", tt.q, got, tt.want)
			}
		})
	}
}

func TestToEulerGimbalLock(t *testing.T) {
	half := float32(math.Sqrt2 / 2)
	tests := []struct {
		name      string
		q         Quaternion
		wantPitch float32
	}{
		{"exact +90", Quaternion{Y: half, W: half}, math.Pi / 2},
		{"exact -90", Quaternion{Y: -half, W: half}, -math.Pi / 2},
		// float32 rounding pushes 2(wy - zx) just above 1
		{"overshoot", Quaternion{Y: 0.70710683, W: 0.70710683}, math.Pi / 2},
		{"overshoot negative", Quaternion{Y: -0.70710683, W: 0.70710683}, -math.Pi / 2},
		{"pole with roll", Quaternion{X: 0.5, Y: 0.5, Z: -0.5, W: 0.5}, math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToEuler(tt.q)
			if !finite(got) {
				t.Fatalf("ToEuler(%+v) = %+v, want finite values", tt.q, got)
			}
			// asin is steep near ±1, so float32 inputs cost some precision here.
			if math.Abs(float64(got.Pitch-tt.wantPitch)) > 1e-3 {
				t.Errorf("ToEuler(%+v).Pitch = %v, want %v", tt.q, got.Pitch, tt.wantPitch)
			}
		})
	}
}

func TestToEulerFiniteOnUnitSphere(t *testing.T) {
	// Walk a coarse grid of unit quaternions, including the poles.
	steps := 12
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			theta := math.Pi * float64(i) / float64(steps)
			phi := 2 * math.Pi * float64(j) / float64(steps)
			for _, w := range []float64{0, 0.3, math.Sqrt2 / 2, 1} {
				r := math.Sqrt(1 - w*w)
				q := Quaternion{
					X: float32(r * math.Sin(theta) * math.Cos(phi)),
					Y: float32(r * math.Sin(theta) * math.Sin(phi)),
					Z: float32(r * math.Cos(theta)),
					W: float32(w),
				}
				if e := ToEuler(q); !finite(e) {
					t.Fatalf("ToEuler(%+v) = %+v, want finite values", q, e)
				}
			}
		}
	}
}

func TestFromEulerRoundTrip(t *testing.T) {
	angles := []Euler{
		{},
		{Roll: 0.3, Pitch: -0.2, Yaw: 1.1},
		{Roll: -2.5, Pitch: 1.2, Yaw: -3.0},
		{Roll: 1, Pitch: 0.9, Yaw: 0.1},
	}

	for _, in := range angles {
		q := FromEuler(in)
		if n := q.Norm(); math.Abs(n-1) > tolerance {
			t.Errorf("FromEuler(%+v).Norm() = %v, want 1", in, n)
		}
		out := ToEuler(q)
		if !near(out.Roll, in.Roll) || !near(out.Pitch, in.Pitch) || !near(out.Yaw, in.Yaw) {
			t.Errorf("ToEuler(FromEuler(%+v)) = %+v", in, out)
		}
	}
}

func TestTiltFromAccel(t *testing.T) {
	flat := TiltFromAccel(0, 0, 1)
	if !near(flat.Roll, 0) || !near(flat.Pitch, 0) || flat.Yaw != 0 {
		t.Errorf("TiltFromAccel(flat) = %+v, want zero", flat)
	}

	nose := TiltFromAccel(-1, 0, 0)
	if !near(nose.Pitch, math.Pi/2) {
		t.Errorf("TiltFromAccel(-1,0,0).Pitch = %v, want π/2", nose.Pitch)
	}
}

func TestDegrees(t *testing.T) {
	r, p, y := Euler{Roll: math.Pi, Pitch: math.Pi / 2, Yaw: -math.Pi / 4}.Degrees()
	if math.Abs(r-180) > 1e-4 || math.Abs(p-90) > 1e-4 || math.Abs(y+45) > 1e-4 {
		t.Errorf("Degrees() = %v, %v, %v", r, p, y)
	}
}

func TestMockSourceProducesUnitQuaternions(t *testing.T) {
	clock := time.Unix(0, 0)
	src := &mockSource{start: clock, phase: 0.5, now: func() time.Time { return clock }}

	for i := 0; i < 50; i++ {
		clock = clock.Add(37 * time.Millisecond)
		q, err := src.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if n := q.Norm(); math.Abs(n-1) > 1e-4 {
			t.Fatalf("Next() norm = %v, want 1", n)
		}
	}
}
