// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recorder

import (
	"strconv"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
)

// formatFloat renders the shortest text that parses back to the same float32.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func formatTimestamp(ts uint64) string {
	return strconv.FormatUint(ts, 10)
}

func emgRow(ts uint64, emg imu.EMG) ([]string, []float64) {
	row := make([]string, 0, 1+len(emg))
	values := make([]float64, 0, len(emg))
	row = append(row, formatTimestamp(ts))
	for _, v := range emg {
		row = append(row, strconv.Itoa(int(v)))
		values = append(values, float64(v))
	}
	return row, values
}

func floatRow(ts uint64, fs ...float32) ([]string, []float64) {
	row := make([]string, 0, 1+len(fs))
	values := make([]float64, 0, len(fs))
	row = append(row, formatTimestamp(ts))
	for _, f := range fs {
		row = append(row, formatFloat(f))
		values = append(values, float64(f))
	}
	return row, values
}

func vectorRow(ts uint64, v imu.Vector3) ([]string, []float64) {
	return floatRow(ts, v.X, v.Y, v.Z)
}

func quaternionRow(ts uint64, q orientation.Quaternion) ([]string, []float64) {
	return floatRow(ts, q.X, q.Y, q.Z, q.W)
}

func eulerRow(ts uint64, e orientation.Euler) ([]string, []float64) {
	return floatRow(ts, e.Roll, e.Pitch, e.Yaw)
}
