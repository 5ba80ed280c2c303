// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/transport"
)

// Queue hands events from a reader goroutine to the goroutine calling Drain.
type Queue struct {
	events    chan Event
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue buffering up to size events.
func NewQueue(size int) *Queue {
	return &Queue{
		events: make(chan Event, size),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Push enqueues ev, blocking while the queue is full. It returns false once
// the queue is closed.
func (q *Queue) Push(ev Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.events <- ev:
		return true
	case <-q.done:
		return false
	}
}

// Fail records a fatal transport error. Only the first one is kept.
func (q *Queue) Fail(err error) {
	select {
	case q.errs <- err:
	default:
	}
}

// Close wakes blocked producers. Pending events are discarded.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Done is closed by Close.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Drain waits up to timeout for one event, then hands fn every event that was
// already queued. It returns the transport error recorded by Fail, if any,
// once the events queued before it have been handed to fn.
func (q *Queue) Drain(ctx context.Context, timeout time.Duration, fn func(Event)) error {
	select {
	case <-q.done:
		return transport.ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return transport.ErrClosed
	case err := <-q.errs:
		q.flush(fn)
		return err
	case ev := <-q.events:
		fn(ev)
	case <-timer.C:
		return nil
	}

	q.flush(fn)
	select {
	case err := <-q.errs:
		// Readers fail after their last Push, so anything still queued
		// precedes the error.
		q.flush(fn)
		return err
	default:
		return nil
	}
}

// flush hands fn the events queued right now. Bounded so a busy producer
// cannot keep one call running forever.
func (q *Queue) flush(fn func(Event)) {
	for n := len(q.events); n > 0; n-- {
		fn(<-q.events)
	}
}
