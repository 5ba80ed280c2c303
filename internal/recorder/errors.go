// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recorder

import "errors"

// ErrInvalidPolicy is returned by ParseUnknownPolicy and ParseErrorPolicy.
var ErrInvalidPolicy = errors.New("recorder: invalid policy")
