// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mirror

import "errors"

// ErrConnectionFailed is returned by Connect when the server cannot be pinged.
var ErrConnectionFailed = errors.New("mirror: influxdb connection failed")
