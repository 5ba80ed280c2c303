// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mock

import (
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

// SimulatedFirmware is the version reported by simulated armbands.
var SimulatedFirmware = transport.FirmwareVersion{Major: 1, Minor: 5, Patch: 1970, HardwareRev: 2}

// DeviceID returns the id of the i-th simulated device.
func DeviceID(i int) string {
	return fmt.Sprintf("sim-%d", i)
}

type simDevice struct {
	id        string
	source    orientation.Source
	streaming bool
	announced bool
}

type simulation struct {
	interval time.Duration
	start    time.Time
	next     time.Time
	devices  []*simDevice
}

// NewSimulated creates a hub with n armbands. Each pairs and connects on the
// first Run, then emits one orientation, accelerometer and gyroscope sample
// per interval, and an EMG sample once streaming has been enabled.
func NewSimulated(n int, interval time.Duration) *Hub {
	h := New()
	now := time.Now()
	sim := &simulation{interval: interval, start: now, next: now}
	for i := 0; i < n; i++ {
		sim.devices = append(sim.devices, &simDevice{
			id:     DeviceID(i),
			source: orientation.NewMockSource(float64(i) * 1.3),
		})
	}
	h.sim = sim
	return h
}

func (s *simulation) setStreaming(id string, enabled bool) {
	for _, d := range s.devices {
		if d.id == id {
			d.streaming = enabled
		}
	}
}

// due returns the events that became due by now.
func (s *simulation) due(now time.Time) []wire.Event {
	var events []wire.Event
	for _, d := range s.devices {
		if !d.announced {
			ts := s.timestamp(now)
			events = append(events,
				wire.PairEvent(d.id, ts, SimulatedFirmware),
				wire.ConnectEvent(d.id, ts, SimulatedFirmware),
			)
			d.announced = true
		}
	}

	for !now.Before(s.next) {
		ts := s.timestamp(s.next)
		for i, d := range s.devices {
			events = append(events, d.samples(ts, i)...)
		}
		s.next = s.next.Add(s.interval)
	}
	return events
}

// timestamp is microseconds since the simulation started.
func (s *simulation) timestamp(t time.Time) uint64 {
	return uint64(t.Sub(s.start).Microseconds())
}

func (d *simDevice) samples(ts uint64, index int) []wire.Event {
	q, err := d.source.Next()
	if err != nil {
		return nil
	}
	e := orientation.ToEuler(q)

	// Gravity seen by a sensor at this attitude, inverse of TiltFromAccel.
	roll, pitch := float64(e.Roll), float64(e.Pitch)
	accel := imu.Vector3{
		X: float32(-math.Sin(pitch)),
		Y: float32(math.Sin(roll) * math.Cos(pitch)),
		Z: float32(math.Cos(roll) * math.Cos(pitch)),
	}

	phase := float64(ts)/1e6 + float64(index)
	gyro := imu.Vector3{
		X: float32(20 * math.Cos(phase)),
		Y: float32(-10.5 * math.Sin(phase*0.7)),
		Z: 30,
	}

	events := []wire.Event{
		wire.OrientationEvent(d.id, ts, q),
		wire.AccelEvent(d.id, ts, accel),
		wire.GyroEvent(d.id, ts, gyro),
	}
	if d.streaming {
		events = append(events, wire.EMGEvent(d.id, ts, emgSample(phase)))
	}
	return events
}

func emgSample(phase float64) imu.EMG {
	var emg imu.EMG
	for ch := range emg {
		emg[ch] = int8(60 * math.Sin(phase*float64(ch+1)))
	}
	return emg
}
