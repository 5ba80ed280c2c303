// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transporttest provides a recording Listener and a fake Handle.
package transporttest

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
)

// Call is one listener invocation.
type Call struct {
	Kind     string
	Handle   transport.Handle
	TS       uint64
	Firmware transport.FirmwareVersion
	EMG      imu.EMG
	Quat     orientation.Quaternion
	Vec      imu.Vector3
}

// Listener records every callback in order.
type Listener struct {
	mu    sync.Mutex
	calls []Call
}

func (l *Listener) add(c Call) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *Listener) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Kinds returns just the callback names, e.g. ["pair", "emg"].
func (l *Listener) Kinds() []string {
	var kinds []string
	for _, c := range l.Calls() {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func (l *Listener) OnPair(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	l.add(Call{Kind: "pair", Handle: h, TS: ts, Firmware: fw})
}

func (l *Listener) OnConnect(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	l.add(Call{Kind: "connect", Handle: h, TS: ts, Firmware: fw})
}

func (l *Listener) OnDisconnect(h transport.Handle, ts uint64) {
	l.add(Call{Kind: "disconnect", Handle: h, TS: ts})
}

func (l *Listener) OnEMGData(h transport.Handle, ts uint64, emg imu.EMG) {
	l.add(Call{Kind: "emg", Handle: h, TS: ts, EMG: emg})
}

func (l *Listener) OnOrientationData(h transport.Handle, ts uint64, q orientation.Quaternion) {
	l.add(Call{Kind: "orientation", Handle: h, TS: ts, Quat: q})
}

func (l *Listener) OnAccelerometerData(h transport.Handle, ts uint64, v imu.Vector3) {
	l.add(Call{Kind: "accel", Handle: h, TS: ts, Vec: v})
}

func (l *Listener) OnGyroscopeData(h transport.Handle, ts uint64, v imu.Vector3) {
	l.add(Call{Kind: "gyro", Handle: h, TS: ts, Vec: v})
}

// Handle is a fake device. SetStreamEMG records the requested state and
// returns Err.
type Handle struct {
	Name string
	Err  error

	mu        sync.Mutex
	streaming []bool
}

func (h *Handle) SetStreamEMG(enabled bool) error {
	h.mu.Lock()
	h.streaming = append(h.streaming, enabled)
	h.mu.Unlock()
	return h.Err
}

// StreamRequests returns every value passed to SetStreamEMG.
func (h *Handle) StreamRequests() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.streaming...)
}

func (h *Handle) String() string { return fmt.Sprintf("device %s", h.Name) }
