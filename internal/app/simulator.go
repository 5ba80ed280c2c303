// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/live"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mock"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

// RunSimulator plays the part of an MQTT bridge: simulated armbands publish
// wire events on TOPIC_BRIDGE_EVENTS and obey commands from
// TOPIC_BRIDGE_COMMANDS.
func RunSimulator(ctx context.Context) error {
	cfg := config.Get()
	log := NewLogger(cfg).With("component", "simulator")

	client, err := mqttclient.Dial(cfg.MQTTBroker, cfg.MQTTClientIDBridge, log)
	if err != nil {
		return err
	}
	defer mqttclient.Disconnect(client)

	hub := mock.NewSimulated(cfg.MockDevices, cfg.MockSampleInterval())
	defer hub.Close()

	err = mqttclient.Subscribe(client, cfg.TopicBridgeCommands, func(_ mqtt.Client, msg mqtt.Message) {
		applyCommand(hub, msg.Payload(), log)
	})
	if err != nil {
		return err
	}

	b := &bridge{pub: mqttclient.NewPublisher(client), topic: cfg.TopicBridgeEvents, log: log}
	log.Info("simulating devices", "devices", cfg.MockDevices, "topic", cfg.TopicBridgeEvents)

	for {
		if err := hub.Run(ctx, cfg.PollTimeout(), b); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// applyCommand forwards a bridge command to the simulated device it names.
func applyCommand(hub *mock.Hub, payload []byte, log *logging.Logger) {
	cmd, err := wire.DecodeCommand(payload)
	if err != nil {
		log.Warn("ignoring command", "error", err)
		return
	}
	if err := hub.Handle(cmd.Device).SetStreamEMG(cmd.Enabled); err != nil {
		log.Warn("command failed", "device", cmd.Device, "error", err)
		return
	}
	log.Info("emg streaming changed", "device", cmd.Device, "enabled", cmd.Enabled)
}

// bridge re-encodes listener callbacks as wire events and publishes them.
type bridge struct {
	pub   live.Publisher
	topic string
	log   *logging.Logger
}

func (b *bridge) emit(ev wire.Event) {
	data, err := wire.Encode(ev)
	if err != nil {
		b.log.Warn("encoding event failed", "type", ev.Type, "error", err)
		return
	}
	if err := b.pub.Publish(b.topic, false, data); err != nil {
		b.log.Warn("publishing event failed", "type", ev.Type, "error", err)
	}
}

func deviceID(h transport.Handle) string {
	if d, ok := h.(*wire.Device); ok {
		return d.ID()
	}
	return fmt.Sprint(h)
}

func (b *bridge) OnPair(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	b.emit(wire.PairEvent(deviceID(h), ts, fw))
}

func (b *bridge) OnConnect(h transport.Handle, ts uint64, fw transport.FirmwareVersion) {
	b.emit(wire.ConnectEvent(deviceID(h), ts, fw))
}

func (b *bridge) OnDisconnect(h transport.Handle, ts uint64) {
	b.emit(wire.DisconnectEvent(deviceID(h), ts))
}

func (b *bridge) OnEMGData(h transport.Handle, ts uint64, emg imu.EMG) {
	b.emit(wire.EMGEvent(deviceID(h), ts, emg))
}

func (b *bridge) OnOrientationData(h transport.Handle, ts uint64, q orientation.Quaternion) {
	b.emit(wire.OrientationEvent(deviceID(h), ts, q))
}

func (b *bridge) OnAccelerometerData(h transport.Handle, ts uint64, v imu.Vector3) {
	b.emit(wire.AccelEvent(deviceID(h), ts, v))
}

func (b *bridge) OnGyroscopeData(h transport.Handle, ts uint64, v imu.Vector3) {
	b.emit(wire.GyroEvent(deviceID(h), ts, v))
}
