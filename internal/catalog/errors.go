// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import "errors"

// ErrNotFound is returned by FinishSession and Session for an unknown id.
var ErrNotFound = errors.New("catalog: session not found")
