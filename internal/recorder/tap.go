// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recorder

import (
	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/session"
)

// State is the connection state of a paired device.
type State string

const (
	StatePaired       State = "paired"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Sample is one row that was written to a log file.
type Sample struct {
	Slot     device.Ordinal
	Label    string
	Modality session.Modality
	TS       uint64
	// Values holds the row without its timestamp, in header column order.
	Values []float64
}

// DeviceEvent reports a state change of a known device.
type DeviceEvent struct {
	Slot     device.Ordinal
	Label    string
	State    State
	TS       uint64
	Firmware string
}

// Tap observes the recording. Taps run on the dispatch goroutine and must not
// block for long; they cannot affect what is written.
type Tap interface {
	Row(s Sample)
	DeviceState(e DeviceEvent)
}
