// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package live

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/relabs-tech/wearable_recorder/internal/device"
)

// DeviceView is the latest known state and pose of one slot.
type DeviceView struct {
	Slot  int           `json:"slot"`
	Label string        `json:"label,omitempty"`
	State *StateMessage `json:"state,omitempty"`
	Euler *EulerMessage `json:"euler,omitempty"`
}

// Board collects live messages for subscribers. Safe for concurrent use.
type Board struct {
	prefix string

	mu    sync.RWMutex
	views map[device.Ordinal]*DeviceView
}

// NewBoard creates an empty board for topics under prefix.
func NewBoard(prefix string) *Board {
	return &Board{prefix: prefix, views: make(map[device.Ordinal]*DeviceView)}
}

// Update applies one message. Topics outside the prefix are an error.
func (b *Board) Update(topic string, payload []byte) (DeviceView, error) {
	slot, kind, ok := ParseTopic(b.prefix, topic)
	if !ok {
		return DeviceView{}, fmt.Errorf("not a live topic: %q", topic)
	}

	var (
		euler EulerMessage
		state StateMessage
	)
	switch kind {
	case KindEuler:
		if err := json.Unmarshal(payload, &euler); err != nil {
			return DeviceView{}, fmt.Errorf("decode %s: %w", topic, err)
		}
	case KindState:
		if err := json.Unmarshal(payload, &state); err != nil {
			return DeviceView{}, fmt.Errorf("decode %s: %w", topic, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.views[slot]
	if !ok {
		v = &DeviceView{Slot: int(slot)}
		b.views[slot] = v
	}
	switch kind {
	case KindEuler:
		v.Euler = &euler
		if euler.Label != "" {
			v.Label = euler.Label
		}
	case KindState:
		v.State = &state
		if state.Label != "" {
			v.Label = state.Label
		}
	}
	return copyView(v), nil
}

// Snapshot returns every slot seen so far, ordered by slot.
func (b *Board) Snapshot() []DeviceView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]DeviceView, 0, len(b.views))
	for _, v := range b.views {
		out = append(out, copyView(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func copyView(v *DeviceView) DeviceView {
	c := *v
	if v.State != nil {
		s := *v.State
		c.State = &s
	}
	if v.Euler != nil {
		e := *v.Euler
		c.Euler = &e
	}
	return c
}
