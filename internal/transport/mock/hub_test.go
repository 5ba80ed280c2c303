// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/transporttest"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

func TestScriptedHubDeliversInOrder(t *testing.T) {
	h := New()
	h.Push(
		wire.PairEvent("a", 1, SimulatedFirmware),
		wire.PairEvent("b", 2, SimulatedFirmware),
		wire.EMGEvent("b", 3, imu.EMG{1, -1, 2, -2, 3, -3, 4, -4}),
	)

	var l transporttest.Listener
	if err := h.Run(context.Background(), time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := l.Calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %v", l.Kinds())
	}
	if calls[0].Handle != h.Handle("a") || calls[1].Handle != h.Handle("b") {
		t.Error("pair handles do not match Handle()")
	}
	if calls[2].Handle != calls[1].Handle {
		t.Error("emg handle differs from the pairing handle")
	}
}

func TestScriptedHubRecordsCommands(t *testing.T) {
	h := New()
	if err := h.Handle("a").SetStreamEMG(true); err != nil {
		t.Fatalf("SetStreamEMG() error = %v", err)
	}
	cmds := h.Commands()
	if len(cmds) != 1 || cmds[0] != wire.StreamEMG("a", true) {
		t.Errorf("Commands() = %+v", cmds)
	}
}

func TestRunWaitsForTimeout(t *testing.T) {
	h := New()
	var l transporttest.Listener

	start := time.Now()
	if err := h.Run(context.Background(), 20*time.Millisecond, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Run() returned before the timeout")
	}
	if len(l.Calls()) != 0 {
		t.Errorf("calls = %v, want none", l.Kinds())
	}
}

func TestRunWakesOnPush(t *testing.T) {
	h := New()
	var l transporttest.Listener

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Push(wire.DisconnectEvent("a", 9))
	}()

	if err := h.Run(context.Background(), 5*time.Second, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if kinds := l.Kinds(); len(kinds) != 1 || kinds[0] != "disconnect" {
		t.Errorf("calls = %v", kinds)
	}
}

func TestRunStopsOnContextAndClose(t *testing.T) {
	h := New()
	var l transporttest.Listener

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Run(ctx, time.Second, &l); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	h.Close()
	if err := h.Run(context.Background(), time.Second, &l); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}

func TestSimulatedHub(t *testing.T) {
	h := NewSimulated(2, 5*time.Millisecond)
	var l transporttest.Listener

	if err := h.Run(context.Background(), 50*time.Millisecond, &l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pairs := 0
	for _, c := range l.Calls() {
		switch c.Kind {
		case "pair":
			pairs++
		case "emg":
			t.Error("emg sample before streaming was enabled")
		}
	}
	if pairs != 2 {
		t.Fatalf("pairs = %d, want 2 (calls %v)", pairs, l.Kinds())
	}

	if err := h.Handle(DeviceID(1)).SetStreamEMG(true); err != nil {
		t.Fatalf("SetStreamEMG() error = %v", err)
	}

	var later transporttest.Listener
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := h.Run(context.Background(), 50*time.Millisecond, &later); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if hasKind(later.Calls(), "emg") {
			break
		}
	}

	var sawOrientation bool
	for _, c := range later.Calls() {
		switch c.Kind {
		case "emg":
			if c.Handle != h.Handle(DeviceID(1)) {
				t.Errorf("emg from %v, want only %s", c.Handle, DeviceID(1))
			}
		case "orientation":
			sawOrientation = true
			if n := c.Quat.Norm(); n < 0.999 || n > 1.001 {
				t.Errorf("quaternion norm = %v", n)
			}
		case "pair":
			t.Error("device paired twice")
		}
	}
	if !hasKind(later.Calls(), "emg") {
		t.Error("no emg sample after streaming was enabled")
	}
	if !sawOrientation {
		t.Error("no orientation samples")
	}
}

func hasKind(calls []transporttest.Call, kind string) bool {
	for _, c := range calls {
		if c.Kind == kind {
			return true
		}
	}
	return false
}
