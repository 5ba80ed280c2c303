// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recorder turns device events into per-device log rows.
//
// Recorder implements transport.Listener. Devices get an ordinal when they
// pair, and every sample is appended to the file of its modality and ordinal.
// All methods are called from the single transport dispatch goroutine.
package recorder

import (
	"errors"

	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/session"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
)

// Sink receives formatted rows. *session.FileManager is the production Sink.
type Sink interface {
	Append(mod session.Modality, slot device.Ordinal, row []string) error
}

// Stats counts what happened to incoming samples.
type Stats struct {
	Written  uint64 // rows appended
	Failed   uint64 // appends that returned an error
	Dropped  uint64 // samples from devices that never paired
	Rejected uint64 // pairings refused because the registry was full
}

// DeviceInfo is the last known state of a paired device.
type DeviceInfo struct {
	Slot     device.Ordinal `json:"slot"`
	Label    string         `json:"label,omitempty"`
	State    State          `json:"state"`
	Firmware string         `json:"firmware,omitempty"`
	LastTS   uint64         `json:"last_ts"`
}

// Recorder is the Listener that records every modality of every paired
// device.
type Recorder struct {
	registry *device.Registry[transport.Handle]
	sink     Sink
	labels   device.Labels
	unknown  UnknownPolicy
	onError  ErrorPolicy
	taps     []Tap
	log      *logging.Logger

	devices []DeviceInfo
	stats   Stats
	err     error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLabels names ordinals in logs and tap output.
func WithLabels(l device.Labels) Option {
	return func(r *Recorder) { r.labels = l }
}

// WithUnknownPolicy sets the handling of samples from unpaired devices.
func WithUnknownPolicy(p UnknownPolicy) Option {
	return func(r *Recorder) { r.unknown = p }
}

// WithErrorPolicy sets the handling of failed appends.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(r *Recorder) { r.onError = p }
}

// WithTaps adds observers of written rows and device state.
func WithTaps(taps ...Tap) Option {
	return func(r *Recorder) { r.taps = append(r.taps, taps...) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// New creates a Recorder that identifies devices with registry and writes
// rows to sink.
func New(registry *device.Registry[transport.Handle], sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		registry: registry,
		sink:     sink,
		labels:   device.Labels{},
		unknown:  DropUnknown,
		onError:  SkipErrors,
		log:      logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Err returns the append failure that stopped recording under AbortOnError.
func (r *Recorder) Err() error { return r.err }

// Stats returns the sample counters.
func (r *Recorder) Stats() Stats { return r.stats }

// Devices returns the paired devices in ordinal order.
func (r *Recorder) Devices() []DeviceInfo {
	return append([]DeviceInfo(nil), r.devices...)
}

// OnPair registers the device and asks it to stream EMG.
func (r *Recorder) OnPair(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	ord, err := r.registry.Register(h)
	if err != nil {
		r.stats.Rejected++
		if errors.Is(err, device.ErrRegistryFull) {
			r.log.Warn("pairing rejected", "firmware", fw.String(), "error", err)
		} else {
			r.log.Error("pairing failed", "error", err)
		}
		return
	}

	r.log.Info("paired with device "+r.labels.Name(ord), "firmware", fw.String())

	if err := h.SetStreamEMG(true); err != nil {
		r.log.Warn("enabling EMG streaming failed", "device", r.labels.Name(ord), "error", err)
	}

	r.setState(ord, StatePaired, ts, &fw)
}

// OnConnect reports a paired device coming back.
func (r *Recorder) OnConnect(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	ord, ok := r.registry.Identify(h)
	if !ok {
		r.log.Info("unpaired device connected", "firmware", fw.String())
		return
	}
	r.log.Info("device "+r.labels.Name(ord)+" connected", "firmware", fw.String())
	r.setState(ord, StateConnected, ts, &fw)
}

// OnDisconnect reports a paired device going away.
func (r *Recorder) OnDisconnect(h transport.Handle, ts uint64) {
	ord, ok := r.registry.Identify(h)
	if !ok {
		r.log.Info("unpaired device disconnected")
		return
	}
	r.log.Info("device " + r.labels.Name(ord) + " disconnected")
	r.setState(ord, StateDisconnected, ts, nil)
}

// OnEMGData appends an emg row.
func (r *Recorder) OnEMGData(h transport.Handle, ts uint64, emg imu.EMG) {
	if ord, ok := r.slot(h); ok {
		row, values := emgRow(ts, emg)
		r.write(ord, session.EMG, ts, row, values)
	}
}

// OnOrientationData appends the quaternion row and its Euler angles.
func (r *Recorder) OnOrientationData(h transport.Handle, ts uint64, q orientation.Quaternion) {
	ord, ok := r.slot(h)
	if !ok {
		return
	}

	row, values := quaternionRow(ts, q)
	r.write(ord, session.Orientation, ts, row, values)

	row, values = eulerRow(ts, orientation.ToEuler(q))
	r.write(ord, session.OrientationEuler, ts, row, values)
}

// OnAccelerometerData appends an accelerometer row.
func (r *Recorder) OnAccelerometerData(h transport.Handle, ts uint64, v imu.Vector3) {
	if ord, ok := r.slot(h); ok {
		row, values := vectorRow(ts, v)
		r.write(ord, session.Accelerometer, ts, row, values)
	}
}

// OnGyroscopeData appends a gyroscope row.
func (r *Recorder) OnGyroscopeData(h transport.Handle, ts uint64, v imu.Vector3) {
	if ord, ok := r.slot(h); ok {
		row, values := vectorRow(ts, v)
		r.write(ord, session.Gyroscope, ts, row, values)
	}
}

// slot resolves the file slot for a sample's handle, applying the unknown
// device policy.
func (r *Recorder) slot(h transport.Handle) (device.Ordinal, bool) {
	if ord, ok := r.registry.Identify(h); ok {
		return ord, true
	}
	if r.unknown == SentinelUnknown {
		return device.Sentinel, true
	}
	r.stats.Dropped++
	if r.stats.Dropped == 1 {
		r.log.Warn("dropping samples from unpaired device")
	}
	return 0, false
}

func (r *Recorder) write(ord device.Ordinal, mod session.Modality, ts uint64, row []string, values []float64) {
	if r.err != nil {
		return
	}

	if err := r.sink.Append(mod, ord, row); err != nil {
		r.stats.Failed++
		if r.onError == AbortOnError {
			r.err = err
			r.log.Error("append failed, stopping", "device", r.labels.Name(ord), "modality", mod.String(), "error", err)
			return
		}
		r.log.Warn("append failed", "device", r.labels.Name(ord), "modality", mod.String(), "error", err)
		return
	}
	r.stats.Written++

	if ord < device.Ordinal(len(r.devices)) && ts > r.devices[ord].LastTS {
		r.devices[ord].LastTS = ts
	}

	s := Sample{Slot: ord, Label: r.labels.Label(ord), Modality: mod, TS: ts, Values: values}
	for _, t := range r.taps {
		t.Row(s)
	}
}

func (r *Recorder) setState(ord device.Ordinal, state State, ts uint64, fw *transport.FirmwareVersion) {
	for device.Ordinal(len(r.devices)) <= ord {
		n := device.Ordinal(len(r.devices))
		r.devices = append(r.devices, DeviceInfo{Slot: n, Label: r.labels.Label(n)})
	}

	info := &r.devices[ord]
	info.State = state
	if fw != nil {
		info.Firmware = fw.String()
	}
	if ts > info.LastTS {
		info.LastTS = ts
	}

	e := DeviceEvent{Slot: ord, Label: info.Label, State: state, TS: ts, Firmware: info.Firmware}
	for _, t := range r.taps {
		t.DeviceState(e)
	}
}
