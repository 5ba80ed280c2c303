// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/live"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
)

// RunConsoleMQTT prints live poses and device state changes until ctx is
// cancelled.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	log := NewLogger(cfg).With("component", "console")

	client, err := mqttclient.Dial(cfg.MQTTBroker, cfg.MQTTClientIDConsole, log)
	if err != nil {
		return err
	}
	defer mqttclient.Disconnect(client)

	board := live.NewBoard(cfg.TopicLivePrefix)
	topic := live.Subscription(cfg.TopicLivePrefix)
	err = mqttclient.Subscribe(client, topic, func(_ mqtt.Client, msg mqtt.Message) {
		view, err := board.Update(msg.Topic(), msg.Payload())
		if err != nil {
			log.Warn("ignoring live message", "topic", msg.Topic(), "error", err)
			return
		}
		_, kind, _ := live.ParseTopic(cfg.TopicLivePrefix, msg.Topic())
		printView(os.Stdout, kind, view)
	})
	if err != nil {
		return err
	}
	log.Info("subscribed to live topics", "topic", topic)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// printView writes the part of view that a message of kind changed.
func printView(w io.Writer, kind string, view live.DeviceView) {
	name := view.Label
	if name == "" {
		name = fmt.Sprintf("slot %d", view.Slot)
	}

	switch {
	case kind == live.KindState && view.State != nil:
		fmt.Fprintf(w, "[STATE %-10s] %s fw=%s ts=%d\n", name, view.State.State, view.State.Firmware, view.State.TS)
	case kind == live.KindEuler && view.Euler != nil:
		e := view.Euler
		fmt.Fprintf(w, "[POSE  %-10s] ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  ts=%d\n", name, e.Roll, e.Pitch, e.Yaw, e.TS)
	}
}
