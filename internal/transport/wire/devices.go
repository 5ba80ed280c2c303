// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import "sync"

// Sender delivers a command to the bridge that owns a device.
type Sender func(Command) error

// Device is the Handle of a device behind a bridge. There is exactly one
// *Device per device id for the lifetime of a Devices table.
type Device struct {
	id   string
	send Sender
}

// ID returns the bridge-assigned device id (usually the BLE address).
func (d *Device) ID() string { return d.id }

// SetStreamEMG sends a stream_emg command for this device.
func (d *Device) SetStreamEMG(enabled bool) error {
	return d.send(StreamEMG(d.id, enabled))
}

// Devices maps device ids to stable handles.
type Devices struct {
	mu   sync.Mutex
	byID map[string]*Device
	send Sender
}

// NewDevices creates an empty table whose handles send commands with send.
func NewDevices(send Sender) *Devices {
	return &Devices{byID: make(map[string]*Device), send: send}
}

// Lookup returns the handle for id, creating it on first sight.
func (t *Devices) Lookup(id string) *Device {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.byID[id]
	if !ok {
		d = &Device{id: id, send: t.send}
		t.byID[id] = d
	}
	return d
}

// Len returns the number of distinct devices seen.
func (t *Devices) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
