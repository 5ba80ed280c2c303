// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wire is the JSON event format spoken by the device bridges.
//
// A bridge (a BLE dongle behind a serial line, or a gateway publishing to
// MQTT) sends one JSON object per event:
//
//	{"type":"pair","device":"c4:ef:...","ts":1712,"fw":"1.5.1970.2"}
//	{"type":"emg","device":"c4:ef:...","ts":1713,"emg":[1,-1,2,-2,3,-3,4,-4]}
//	{"type":"orientation","device":"c4:ef:...","ts":1714,"quat":[0,0,0,1]}
//	{"type":"accel","device":"c4:ef:...","ts":1714,"vec":[0,0,1]}
//
// and accepts commands such as
//
//	{"cmd":"stream_emg","device":"c4:ef:...","enabled":true}
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
)

// Type names the kind of event.
type Type string

const (
	TypePair        Type = "pair"
	TypeConnect     Type = "connect"
	TypeDisconnect  Type = "disconnect"
	TypeEMG         Type = "emg"
	TypeOrientation Type = "orientation"
	TypeAccel       Type = "accel"
	TypeGyro        Type = "gyro"
)

// Event is one decoded bridge message.
type Event struct {
	Type      Type      `json:"type"`
	Device    string    `json:"device"`
	Timestamp uint64    `json:"ts"`
	Firmware  string    `json:"fw,omitempty"`
	EMG       []int8    `json:"emg,omitempty"`
	Quat      []float32 `json:"quat,omitempty"`
	Vec       []float32 `json:"vec,omitempty"`
}

// Decode parses and validates one event.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Encode marshals an event after validating it.
func Encode(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}

// Validate checks that the payload has the shape the type requires.
func (ev Event) Validate() error {
	if ev.Device == "" {
		return fmt.Errorf("%w: missing device", ErrMalformed)
	}

	switch ev.Type {
	case TypePair, TypeConnect:
		if _, err := transport.ParseFirmwareVersion(ev.Firmware); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	case TypeDisconnect:
	case TypeEMG:
		if len(ev.EMG) != imu.EMGChannels {
			return fmt.Errorf("%w: emg has %d channels, want %d", ErrMalformed, len(ev.EMG), imu.EMGChannels)
		}
	case TypeOrientation:
		if len(ev.Quat) != 4 {
			return fmt.Errorf("%w: quat has %d components, want 4", ErrMalformed, len(ev.Quat))
		}
	case TypeAccel, TypeGyro:
		if len(ev.Vec) != 3 {
			return fmt.Errorf("%w: vec has %d components, want 3", ErrMalformed, len(ev.Vec))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, ev.Type)
	}
	return nil
}

// Dispatch delivers a validated event for handle h to l.
func Dispatch(ev Event, h transport.Handle, l transport.Listener) error {
	switch ev.Type {
	case TypePair, TypeConnect:
		fw, err := transport.ParseFirmwareVersion(ev.Firmware)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if ev.Type == TypePair {
			l.OnPair(h, ev.Timestamp, fw)
		} else {
			l.OnConnect(h, ev.Timestamp, fw)
		}
	case TypeDisconnect:
		l.OnDisconnect(h, ev.Timestamp)
	case TypeEMG:
		var emg imu.EMG
		if copy(emg[:], ev.EMG) != imu.EMGChannels {
			return fmt.Errorf("%w: short emg payload", ErrMalformed)
		}
		l.OnEMGData(h, ev.Timestamp, emg)
	case TypeOrientation:
		if len(ev.Quat) != 4 {
			return fmt.Errorf("%w: short quat payload", ErrMalformed)
		}
		l.OnOrientationData(h, ev.Timestamp, orientation.Quaternion{
			X: ev.Quat[0], Y: ev.Quat[1], Z: ev.Quat[2], W: ev.Quat[3],
		})
	case TypeAccel, TypeGyro:
		if len(ev.Vec) != 3 {
			return fmt.Errorf("%w: short vec payload", ErrMalformed)
		}
		v := imu.Vector3{X: ev.Vec[0], Y: ev.Vec[1], Z: ev.Vec[2]}
		if ev.Type == TypeAccel {
			l.OnAccelerometerData(h, ev.Timestamp, v)
		} else {
			l.OnGyroscopeData(h, ev.Timestamp, v)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, ev.Type)
	}
	return nil
}

// PairEvent builds a pair event.
func PairEvent(device string, ts uint64, fw transport.FirmwareVersion) Event {
	return Event{Type: TypePair, Device: device, Timestamp: ts, Firmware: fw.String()}
}

// ConnectEvent builds a connect event.
func ConnectEvent(device string, ts uint64, fw transport.FirmwareVersion) Event {
	return Event{Type: TypeConnect, Device: device, Timestamp: ts, Firmware: fw.String()}
}

// DisconnectEvent builds a disconnect event.
func DisconnectEvent(device string, ts uint64) Event {
	return Event{Type: TypeDisconnect, Device: device, Timestamp: ts}
}

// EMGEvent builds an EMG sample event.
func EMGEvent(device string, ts uint64, emg imu.EMG) Event {
	return Event{Type: TypeEMG, Device: device, Timestamp: ts, EMG: append([]int8(nil), emg[:]...)}
}

// OrientationEvent builds an orientation sample event.
func OrientationEvent(device string, ts uint64, q orientation.Quaternion) Event {
	return Event{Type: TypeOrientation, Device: device, Timestamp: ts, Quat: []float32{q.X, q.Y, q.Z, q.W}}
}

// AccelEvent builds an accelerometer sample event.
func AccelEvent(device string, ts uint64, v imu.Vector3) Event {
	return Event{Type: TypeAccel, Device: device, Timestamp: ts, Vec: []float32{v.X, v.Y, v.Z}}
}

// GyroEvent builds a gyroscope sample event.
func GyroEvent(device string, ts uint64, v imu.Vector3) Event {
	return Event{Type: TypeGyro, Device: device, Timestamp: ts, Vec: []float32{v.X, v.Y, v.Z}}
}
