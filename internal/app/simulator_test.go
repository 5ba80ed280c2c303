// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mock"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, retained, payload})
	return nil
}

func TestBridgeRepublishesEvents(t *testing.T) {
	pub := &fakePublisher{}
	b := &bridge{pub: pub, topic: "wearable/bridge/events", log: logging.Discard()}

	in := []wire.Event{
		wire.PairEvent("sim-0", 0, fw),
		wire.ConnectEvent("sim-0", 0, fw),
		wire.EMGEvent("sim-0", 5, imu.EMG{1, 2, 3, 4, 5, 6, 7, -8}),
		wire.OrientationEvent("sim-0", 6, orientation.Identity),
		wire.AccelEvent("sim-0", 7, imu.Vector3{Z: 1}),
		wire.GyroEvent("sim-0", 8, imu.Vector3{X: 3}),
		wire.DisconnectEvent("sim-0", 9),
	}
	hub := mock.New()
	hub.Push(in...)
	if err := hub.Run(context.Background(), time.Second, b); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(pub.msgs) != len(in) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(in))
	}
	for i, m := range pub.msgs {
		if m.topic != "wearable/bridge/events" || m.retained {
			t.Errorf("message %d published to %q retained=%v", i, m.topic, m.retained)
		}
		ev, err := wire.Decode(m.payload)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", m.payload, err)
		}
		if ev.Type != in[i].Type || ev.Device != "sim-0" || ev.Timestamp != in[i].Timestamp {
			t.Errorf("message %d = %+v, want %+v", i, ev, in[i])
		}
	}
}

func TestBridgeSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	b := &bridge{pub: pub, topic: "events", log: logging.Discard()}
	b.OnDisconnect(mock.New().Handle("sim-1"), 1)
	if len(pub.msgs) != 0 {
		t.Errorf("messages = %v", pub.msgs)
	}
}

func TestApplyCommandTogglesStreaming(t *testing.T) {
	hub := mock.NewSimulated(1, time.Millisecond)
	defer hub.Close()

	payload, err := wire.EncodeCommand(wire.StreamEMG(mock.DeviceID(0), true))
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	applyCommand(hub, payload, logging.Discard())
	applyCommand(hub, []byte("not json"), logging.Discard())

	cmds := hub.Commands()
	if len(cmds) != 1 || cmds[0] != wire.StreamEMG(mock.DeviceID(0), true) {
		t.Errorf("Commands() = %+v", cmds)
	}
}
