// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrIO matches every *IOError via errors.Is.
	ErrIO = errors.New("session: i/o error")

	// ErrNoSession is returned by Append before OpenSession succeeded.
	ErrNoSession = errors.New("session: no open session")

	// ErrSlotOutOfRange is returned for a slot the session did not open.
	ErrSlotOutOfRange = errors.New("session: slot out of range")

	// ErrColumnCount is returned when a row does not match the modality header.
	ErrColumnCount = errors.New("session: wrong column count")

	// ErrInvalidSlots is returned by OpenSession for a non-positive slot count.
	ErrInvalidSlots = errors.New("session: slot count must be positive")

	// ErrUnknownModality is returned by ParseModality.
	ErrUnknownModality = errors.New("session: unknown modality")
)

// IOError reports a failed open, write or close of one log file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("session: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIO) match any IOError.
func (e *IOError) Is(target error) bool { return target == ErrIO }
