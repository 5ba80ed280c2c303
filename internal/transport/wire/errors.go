// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import "errors"

var (
	// ErrMalformed is returned for events or commands that do not decode or
	// have the wrong payload shape.
	ErrMalformed = errors.New("wire: malformed message")

	// ErrUnknownType is returned for an unrecognised event type.
	ErrUnknownType = errors.New("wire: unknown event type")

	// ErrUnknownCommand is returned for an unrecognised command.
	ErrUnknownCommand = errors.New("wire: unknown command")
)
