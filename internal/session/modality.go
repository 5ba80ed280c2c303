// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import "fmt"

// Modality is one category of recorded sensor data. Each modality gets its own
// file per device slot.
type Modality int

const (
	EMG Modality = iota
	Gyroscope
	Accelerometer
	Orientation
	OrientationEuler

	modalityCount
)

// Modalities lists every modality in file-opening order.
var Modalities = [modalityCount]Modality{EMG, Gyroscope, Accelerometer, Orientation, OrientationEuler}

var modalityNames = [modalityCount]string{
	EMG:              "emg",
	Gyroscope:        "gyro",
	Accelerometer:    "accelerometer",
	Orientation:      "orientation",
	OrientationEuler: "orientationEuler",
}

// Headers are written verbatim as the first line of every file.
var modalityHeaders = [modalityCount][]string{
	EMG:              {"timestamp", "emg1", "emg2", "emg3", "emg4", "emg5", "emg6", "emg7", "emg8"},
	Gyroscope:        {"timestamp", "x", "y", "z"},
	Accelerometer:    {"timestamp", "x", "y", "z"},
	Orientation:      {"timestamp", "x", "y", "z", "w"},
	OrientationEuler: {"timestamp", "roll", "pitch", "yaw"},
}

// String returns the filename prefix, e.g. "orientationEuler".
func (m Modality) String() string {
	if m.valid() {
		return modalityNames[m]
	}
	return fmt.Sprintf("modality(%d)", int(m))
}

// Header returns a copy of the CSV header columns.
func (m Modality) Header() []string {
	if !m.valid() {
		return nil
	}
	return append([]string(nil), modalityHeaders[m]...)
}

// Columns is the number of fields in every row, timestamp included.
func (m Modality) Columns() int {
	if !m.valid() {
		return 0
	}
	return len(modalityHeaders[m])
}

// ParseModality maps a filename prefix back to its Modality.
func ParseModality(name string) (Modality, error) {
	for m, n := range modalityNames {
		if n == name {
			return Modality(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModality, name)
}

func (m Modality) valid() bool {
	return m >= 0 && m < modalityCount
}
