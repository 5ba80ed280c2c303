// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqtthub receives device events from a bridge that publishes wire
// JSON to an MQTT topic, and sends commands back on another topic.
package mqtthub

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

const queueSize = 4096

// ErrConnectionLost is returned by Run after the broker connection dropped.
var ErrConnectionLost = errors.New("mqtthub: connection lost")

// Publisher sends one MQTT message.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// Hub is a transport.Hub fed by MQTT messages.
type Hub struct {
	client        mqtt.Client
	eventsTopic   string
	commandsTopic string
	pub           Publisher
	queue         *wire.Queue
	devices       *wire.Devices
	log           *logging.Logger
}

func newHub(pub Publisher, commandsTopic string, log *logging.Logger) *Hub {
	h := &Hub{
		commandsTopic: commandsTopic,
		pub:           pub,
		queue:         wire.NewQueue(queueSize),
		log:           log,
	}
	h.devices = wire.NewDevices(h.send)
	return h
}

// Dial connects to broker and subscribes to eventsTopic.
func Dial(broker, clientID, eventsTopic, commandsTopic string, log *logging.Logger) (*Hub, error) {
	h := newHub(nil, commandsTopic, log)
	h.eventsTopic = eventsTopic

	opts := mqttclient.Options(broker, clientID, log)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error("bridge connection lost", "broker", broker, "error", err)
		h.queue.Fail(fmt.Errorf("%w: %w", ErrConnectionLost, err))
	})

	client, err := mqttclient.Connect(opts)
	if err != nil {
		return nil, err
	}
	h.client = client
	h.pub = mqttclient.NewPublisher(client)

	if err := mqttclient.Subscribe(client, eventsTopic, func(_ mqtt.Client, msg mqtt.Message) {
		h.handle(msg.Payload())
	}); err != nil {
		mqttclient.Disconnect(client)
		return nil, err
	}

	log.Info("listening for bridge events", "broker", broker, "topic", eventsTopic, "commands", commandsTopic)
	return h, nil
}

// handle decodes one message from the bridge. Malformed messages are logged
// and dropped.
func (h *Hub) handle(payload []byte) {
	ev, err := wire.Decode(payload)
	if err != nil {
		h.log.Warn("dropping bridge message", "error", err)
		return
	}
	h.queue.Push(ev)
}

func (h *Hub) send(c wire.Command) error {
	payload, err := wire.EncodeCommand(c)
	if err != nil {
		return err
	}
	return h.pub.Publish(h.commandsTopic, false, payload)
}

// Run delivers the events received since the last call.
func (h *Hub) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	return h.queue.Drain(ctx, timeout, func(ev wire.Event) {
		if err := wire.Dispatch(ev, h.devices.Lookup(ev.Device), l); err != nil {
			h.log.Warn("dropping bridge event", "device", ev.Device, "error", err)
		}
	})
}

// Close unsubscribes and disconnects.
func (h *Hub) Close() error {
	h.queue.Close()
	if h.client == nil {
		return nil
	}
	if h.eventsTopic != "" {
		h.client.Unsubscribe(h.eventsTopic).WaitTimeout(time.Second)
	}
	mqttclient.Disconnect(h.client)
	return nil
}
