// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialhub talks to a BLE dongle bridge over a serial line carrying
// newline-delimited wire JSON in both directions.
package serialhub

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

const queueSize = 4096

// ErrRead is returned by Run after the serial line failed.
var ErrRead = errors.New("serialhub: read failed")

// Hub is a transport.Hub reading from a serial port.
type Hub struct {
	port    io.ReadWriteCloser
	writeMu sync.Mutex
	closed  atomic.Bool

	queue   *wire.Queue
	devices *wire.Devices
	log     *logging.Logger
}

// Open opens portName at baud (8N1) and starts reading events.
func Open(portName string, baud int, log *logging.Logger) (*Hub, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	log.Info("bridge serial port opened", "port", portName, "baud", baud)

	return newHub(port, log), nil
}

func newHub(port io.ReadWriteCloser, log *logging.Logger) *Hub {
	h := &Hub{
		port:  port,
		queue: wire.NewQueue(queueSize),
		log:   log,
	}
	h.devices = wire.NewDevices(h.send)
	go h.readLoop()
	return h
}

func (h *Hub) readLoop() {
	reader := bufio.NewReader(h.port)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if ev, decodeErr := wire.Decode([]byte(line)); decodeErr != nil {
				h.log.Warn("dropping bridge line", "error", decodeErr)
			} else if !h.queue.Push(ev) {
				return
			}
		}

		if err != nil {
			if !h.closed.Load() {
				h.log.Error("bridge serial read failed", "error", err)
				h.queue.Fail(fmt.Errorf("%w: %w", ErrRead, err))
			}
			return
		}
	}
}

func (h *Hub) send(c wire.Command) error {
	payload, err := wire.EncodeCommand(c)
	if err != nil {
		return err
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := h.port.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// Run delivers the events read since the last call.
func (h *Hub) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	return h.queue.Drain(ctx, timeout, func(ev wire.Event) {
		if err := wire.Dispatch(ev, h.devices.Lookup(ev.Device), l); err != nil {
			h.log.Warn("dropping bridge event", "device", ev.Device, "error", err)
		}
	})
}

// Close stops reading and closes the port.
func (h *Hub) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.queue.Close()
	return h.port.Close()
}
