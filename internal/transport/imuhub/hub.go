// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imuhub records IMUs wired straight to the host instead of
// wearables behind a bridge. Each sensor pairs once at start and then
// produces accelerometer, gyroscope and orientation samples at a fixed rate.
// The sensors have no EMG electrodes.
package imuhub

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
)

// Sensor reads one calibrated sample: acceleration in g, rotation in °/s.
type Sensor interface {
	Read() (accel, gyro imu.Vector3, err error)
}

// Device is the handle of one onboard sensor.
type Device struct {
	name string
}

// Name returns the configured sensor name, e.g. the SPI device path.
func (d *Device) Name() string { return d.name }

// SetStreamEMG does nothing; onboard IMUs have no EMG.
func (d *Device) SetStreamEMG(bool) error { return nil }

type onboard struct {
	sensor Sensor
	handle *Device
	yaw    float64 // radians, integrated from gyro Z
	lastTS uint64
	seen   bool
	failed bool
}

// Hub polls its sensors once per interval.
type Hub struct {
	sensors  []*onboard
	interval time.Duration
	log      *logging.Logger
	now      func() time.Time

	start  time.Time
	next   time.Time
	paired bool
	closed bool
}

// New creates a hub over sensors. names label the sensors in logs and must
// have the same length.
func New(sensors []Sensor, names []string, interval time.Duration, log *logging.Logger) (*Hub, error) {
	if len(sensors) != len(names) {
		return nil, fmt.Errorf("imuhub: %d sensors but %d names", len(sensors), len(names))
	}

	h := &Hub{interval: interval, log: log, now: time.Now}
	for i, s := range sensors {
		h.sensors = append(h.sensors, &onboard{sensor: s, handle: &Device{name: names[i]}})
	}
	return h, nil
}

// Handles returns the sensor handles in pairing order.
func (h *Hub) Handles() []transport.Handle {
	out := make([]transport.Handle, len(h.sensors))
	for i, s := range h.sensors {
		out[i] = s.handle
	}
	return out
}

// Run pairs every sensor on the first call, then delivers one sample per
// sensor for each interval that has elapsed. It waits for the next interval
// boundary for at most timeout.
func (h *Hub) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	if h.closed {
		return transport.ErrClosed
	}

	if !h.paired {
		h.start = h.now()
		h.next = h.start
		for _, s := range h.sensors {
			l.OnPair(s.handle, 0, transport.FirmwareVersion{})
			l.OnConnect(s.handle, 0, transport.FirmwareVersion{})
		}
		h.paired = true
	}

	if wait := h.next.Sub(h.now()); wait > 0 {
		if wait > timeout {
			wait = timeout
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	now := h.now()
	if now.Before(h.next) {
		return nil
	}
	ts := uint64(now.Sub(h.start).Microseconds())
	for _, s := range h.sensors {
		h.sample(s, ts, l)
	}
	// Skip missed ticks rather than bursting to catch up.
	for !h.next.After(now) {
		h.next = h.next.Add(h.interval)
	}
	return nil
}

func (h *Hub) sample(s *onboard, ts uint64, l transport.Listener) {
	accel, gyro, err := s.sensor.Read()
	if err != nil {
		if !s.failed {
			h.log.Warn("imu read failed", "sensor", s.handle.name, "error", err)
			s.failed = true
		}
		return
	}
	s.failed = false

	if s.seen && ts > s.lastTS {
		dt := float64(ts-s.lastTS) / 1e6
		s.yaw = wrapAngle(s.yaw + float64(gyro.Z)*math.Pi/180*dt)
	}
	s.lastTS = ts
	s.seen = true

	e := orientation.TiltFromAccel(float64(accel.X), float64(accel.Y), float64(accel.Z))
	e.Yaw = float32(s.yaw)

	l.OnAccelerometerData(s.handle, ts, accel)
	l.OnGyroscopeData(s.handle, ts, gyro)
	l.OnOrientationData(s.handle, ts, orientation.FromEuler(e))
}

// Close makes further Run calls fail.
func (h *Hub) Close() error {
	h.closed = true
	return nil
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
