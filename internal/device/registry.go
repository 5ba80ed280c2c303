// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"fmt"
	"strconv"
)

// Ordinal is the short stable identity given to a device when it pairs.
// The k-th distinct device ever paired gets ordinal k-1.
type Ordinal int

// Sentinel is the ordinal legacy recordings attribute unknown devices to.
// It is also the ordinal of the first real device.
const Sentinel Ordinal = 0

func (o Ordinal) String() string {
	return strconv.Itoa(int(o))
}

// Registry maps opaque device handles to ordinals in pairing order.
// Handles are compared with ==. Entries are never removed, so a device keeps
// its ordinal across disconnects for the lifetime of the process.
//
// Registry is not safe for concurrent use; it is driven from the single
// transport dispatch goroutine.
type Registry[H comparable] struct {
	handles []H
	limit   int
}

// NewRegistry creates a registry accepting at most limit devices.
// limit <= 0 means unbounded.
func NewRegistry[H comparable](limit int) *Registry[H] {
	return &Registry[H]{limit: limit}
}

// Register returns the ordinal of h, assigning the next free one if h has not
// been seen before. Calling it again for the same handle is a no-op.
func (r *Registry[H]) Register(h H) (Ordinal, error) {
	if ord, ok := r.Identify(h); ok {
		return ord, nil
	}
	if r.limit > 0 && len(r.handles) >= r.limit {
		return 0, fmt.Errorf("%w: limit is %d", ErrRegistryFull, r.limit)
	}
	r.handles = append(r.handles, h)
	return Ordinal(len(r.handles) - 1), nil
}

// Identify returns the ordinal of h and whether h is registered.
func (r *Registry[H]) Identify(h H) (Ordinal, bool) {
	for i, known := range r.handles {
		if known == h {
			return Ordinal(i), true
		}
	}
	return 0, false
}

// Len returns the number of registered devices.
func (r *Registry[H]) Len() int {
	return len(r.handles)
}

// Max returns the configured limit, or 0 when unbounded.
func (r *Registry[H]) Max() int {
	return r.limit
}
