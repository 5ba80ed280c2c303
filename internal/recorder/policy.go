// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recorder

import "fmt"

// UnknownPolicy decides what happens to samples from devices that never
// paired.
type UnknownPolicy string

const (
	// DropUnknown discards the sample and counts it.
	DropUnknown UnknownPolicy = "drop"
	// SentinelUnknown records the sample under ordinal 0. Such rows cannot be
	// told apart from rows of the first paired device.
	SentinelUnknown UnknownPolicy = "sentinel"
)

// ErrorPolicy decides what a failed append does to the recording.
type ErrorPolicy string

const (
	// SkipErrors logs the failure, counts it, and keeps recording.
	SkipErrors ErrorPolicy = "skip"
	// AbortOnError keeps the first failure in Err and stops recording.
	AbortOnError ErrorPolicy = "abort"
)

// ParseUnknownPolicy validates an UNKNOWN_DEVICE_POLICY value.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(s); p {
	case DropUnknown, SentinelUnknown:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown device policy %q (want drop or sentinel)", ErrInvalidPolicy, s)
}

// ParseErrorPolicy validates an APPEND_ERROR_POLICY value.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case SkipErrors, AbortOnError:
		return p, nil
	}
	return "", fmt.Errorf("%w: append error policy %q (want skip or abort)", ErrInvalidPolicy, s)
}
