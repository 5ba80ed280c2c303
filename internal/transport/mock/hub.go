// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mock provides hubs that need no hardware: a scripted queue for tests
// and a set of simulated armbands for development.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

// Hub delivers events pushed to it, plus whatever its simulated devices
// produce. The zero value is not usable; call New or NewSimulated.
type Hub struct {
	mu       sync.Mutex
	pending  []wire.Event
	commands []wire.Command
	closed   bool
	wake     chan struct{}

	devices *wire.Devices
	sim     *simulation
}

// New creates an empty scripted hub.
func New() *Hub {
	h := &Hub{wake: make(chan struct{}, 1)}
	h.devices = wire.NewDevices(h.record)
	return h
}

// Push queues events for the next Run. Events for device ids never seen
// before get a new handle.
func (h *Hub) Push(events ...wire.Event) {
	h.mu.Lock()
	h.pending = append(h.pending, events...)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Handle returns the handle used for device id.
func (h *Hub) Handle(id string) transport.Handle {
	return h.devices.Lookup(id)
}

// Commands returns every command sent through the hub's handles.
func (h *Hub) Commands() []wire.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wire.Command(nil), h.commands...)
}

func (h *Hub) record(c wire.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, c)
	if h.sim != nil {
		h.sim.setStreaming(c.Device, c.Enabled)
	}
	return nil
}

// Run delivers queued and simulated events. With nothing to deliver it waits
// for a Push, the timeout, or ctx.
func (h *Hub) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	events, err := h.take()
	if err != nil {
		return err
	}

	if len(events) == 0 {
		wait := timeout
		if h.sim != nil && h.sim.interval < wait {
			wait = h.sim.interval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-h.wake:
		case <-timer.C:
		}
		timer.Stop()

		if events, err = h.take(); err != nil {
			return err
		}
	}

	for _, ev := range events {
		if err := wire.Dispatch(ev, h.devices.Lookup(ev.Device), l); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) take() ([]wire.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, transport.ErrClosed
	}
	events := h.pending
	h.pending = nil
	if h.sim != nil {
		events = append(events, h.sim.due(time.Now())...)
	}
	return events, nil
}

// Close makes further Run calls fail with transport.ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}
