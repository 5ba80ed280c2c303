// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imuhub

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/transporttest"
)

type fakeSensor struct {
	accel, gyro imu.Vector3
	err         error
}

func (s *fakeSensor) Read() (imu.Vector3, imu.Vector3, error) {
	return s.accel, s.gyro, s.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHub(t *testing.T, sensors ...Sensor) (*Hub, *clock) {
	t.Helper()
	names := make([]string, len(sensors))
	for i := range names {
		names[i] = "/dev/spidev0." + string(rune('0'+i))
	}
	h, err := New(sensors, names, 10*time.Millisecond, logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c := &clock{t: time.Unix(100, 0)}
	h.now = c.now
	return h, c
}

func TestFirstRunPairsEverySensor(t *testing.T) {
	flat := &fakeSensor{accel: imu.Vector3{Z: 1}}
	h, _ := newTestHub(t, flat, flat)

	var l transporttest.Listener
	if err := h.Run(context.Background(), time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"pair", "pair", "connect", "connect"}
	kinds := l.Kinds()
	pairs, connects := 0, 0
	for _, k := range kinds {
		switch k {
		case "pair":
			pairs++
		case "connect":
			connects++
		}
	}
	if pairs != 2 || connects != 2 {
		t.Errorf("kinds = %v, want %v plus samples", kinds, want)
	}

	handles := h.Handles()
	if handles[0] == handles[1] {
		t.Error("sensors share a handle")
	}
	if err := handles[0].SetStreamEMG(true); err != nil {
		t.Errorf("SetStreamEMG() error = %v", err)
	}
}

func TestSamplesPerInterval(t *testing.T) {
	s := &fakeSensor{accel: imu.Vector3{Z: 1}, gyro: imu.Vector3{Z: 90}}
	h, c := newTestHub(t, s)

	var l transporttest.Listener
	if err := h.Run(context.Background(), time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	c.advance(time.Second)
	if err := h.Run(context.Background(), time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var accel, orient []transporttest.Call
	for _, call := range l.Calls() {
		switch call.Kind {
		case "accel":
			accel = append(accel, call)
		case "orientation":
			orient = append(orient, call)
		}
	}
	if len(accel) != 2 || len(orient) != 2 {
		t.Fatalf("kinds = %v, want two sample rounds", l.Kinds())
	}
	if accel[0].TS != 0 || accel[1].TS != 1_000_000 {
		t.Errorf("timestamps = %d, %d", accel[0].TS, accel[1].TS)
	}

	// One second at 90°/s about Z, lying flat.
	e := orientation.ToEuler(orient[1].Quat)
	if math.Abs(float64(e.Yaw)-math.Pi/2) > 1e-3 {
		t.Errorf("yaw = %v, want π/2", e.Yaw)
	}
	if math.Abs(float64(e.Roll)) > 1e-6 || math.Abs(float64(e.Pitch)) > 1e-6 {
		t.Errorf("tilt = %v, %v, want level", e.Roll, e.Pitch)
	}
}

func TestRunBeforeIntervalDeliversNothing(t *testing.T) {
	h, _ := newTestHub(t, &fakeSensor{accel: imu.Vector3{Z: 1}})
	var l transporttest.Listener
	h.Run(context.Background(), time.Second, &l)
	n := len(l.Calls())

	// The fake clock does not move, so the wait is capped by the timeout.
	if err := h.Run(context.Background(), 5*time.Millisecond, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(l.Calls()) != n {
		t.Errorf("calls grew from %d to %d without time passing", n, len(l.Calls()))
	}
}

func TestReadErrorSkipsSample(t *testing.T) {
	bad := &fakeSensor{err: errors.New("spi timeout")}
	good := &fakeSensor{accel: imu.Vector3{Z: 1}}
	h, _ := newTestHub(t, bad, good)

	var l transporttest.Listener
	if err := h.Run(context.Background(), time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, call := range l.Calls() {
		if call.Kind == "accel" && call.Handle == h.Handles()[0] {
			t.Error("sample delivered for failing sensor")
		}
	}
}

func TestNewAndClose(t *testing.T) {
	if _, err := New([]Sensor{&fakeSensor{}}, nil, time.Millisecond, logging.Discard()); err == nil {
		t.Error("New() with mismatched names error = nil")
	}

	h, _ := newTestHub(t, &fakeSensor{})
	h.Close()
	var l transporttest.Listener
	if err := h.Run(context.Background(), time.Millisecond, &l); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}

func TestWrapAngle(t *testing.T) {
	if got := wrapAngle(3 * math.Pi / 2); math.Abs(got+math.Pi/2) > 1e-12 {
		t.Errorf("wrapAngle(3π/2) = %v", got)
	}
	if got := wrapAngle(-3 * math.Pi / 2); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("wrapAngle(-3π/2) = %v", got)
	}
}
