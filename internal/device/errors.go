// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import "errors"

var (
	// ErrRegistryFull is returned when a new device pairs after the configured
	// maximum has been reached.
	ErrRegistryFull = errors.New("device: registry full")

	// ErrInvalidLabels is returned when the label file cannot be parsed.
	ErrInvalidLabels = errors.New("device: invalid label file")
)
