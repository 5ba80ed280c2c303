// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// EMGChannels is the number of electrodes on one armband.
const EMGChannels = 8

// EMG is one sample of the eight signed 8-bit electrode readings.
type EMG [EMGChannels]int8

// Vector3 is a three-axis sample. It is used for both the accelerometer (g)
// and the gyroscope (°/s).
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}
