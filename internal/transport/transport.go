// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport defines the contract between a device connectivity layer
// and the code that consumes its events.
//
// A Hub owns the connection to the physical devices. Each Run call drains the
// events that are pending (waiting up to a timeout for the first one) and
// delivers them to a Listener synchronously, on the caller's goroutine, in
// arrival order. Handlers never run concurrently with each other.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
)

// Handle identifies one physical device for the lifetime of the process.
// Handles are only ever compared with ==, so implementations must be
// comparable and stable (typically a pointer per device).
type Handle interface {
	// SetStreamEMG turns continuous EMG streaming on or off on the device.
	SetStreamEMG(enabled bool) error
}

// Listener receives device events.
type Listener interface {
	OnPair(h Handle, ts uint64, fw FirmwareVersion)
	OnConnect(h Handle, ts uint64, fw FirmwareVersion)
	OnDisconnect(h Handle, ts uint64)
	OnEMGData(h Handle, ts uint64, emg imu.EMG)
	OnOrientationData(h Handle, ts uint64, q orientation.Quaternion)
	OnAccelerometerData(h Handle, ts uint64, v imu.Vector3)
	OnGyroscopeData(h Handle, ts uint64, v imu.Vector3)
}

// Hub is an event source.
type Hub interface {
	// Run delivers pending events to l. It blocks for at most timeout waiting
	// for the first event, or until ctx is done. A returned error means the
	// transport is unusable.
	Run(ctx context.Context, timeout time.Duration, l Listener) error
	Close() error
}

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("transport: hub closed")

// ErrInvalidFirmware is returned by ParseFirmwareVersion.
var ErrInvalidFirmware = errors.New("transport: invalid firmware version")

// FirmwareVersion is the version reported by a device on pair and connect.
type FirmwareVersion struct {
	Major       uint32
	Minor       uint32
	Patch       uint32
	HardwareRev uint32
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.HardwareRev)
}

// ParseFirmwareVersion parses "major.minor.patch.rev". Missing trailing
// components are zero; an empty string is the zero version.
func ParseFirmwareVersion(s string) (FirmwareVersion, error) {
	var v FirmwareVersion
	if s == "" {
		return v, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return v, fmt.Errorf("%w: %q", ErrInvalidFirmware, s)
	}

	fields := []*uint32{&v.Major, &v.Minor, &v.Patch, &v.HardwareRev}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return FirmwareVersion{}, fmt.Errorf("%w: %q", ErrInvalidFirmware, s)
		}
		*fields[i] = uint32(n)
	}
	return v, nil
}
