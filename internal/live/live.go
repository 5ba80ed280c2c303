// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package live publishes the recorder's view of each device to MQTT so that
// dashboards can follow a recording while it happens.
//
// Topics, for a prefix of "wearable/live":
//
//	wearable/live/{slot}/euler  {"slot":0,"label":"left-forearm","ts":1000,"roll":1.5,"pitch":-3,"yaw":90}
//	wearable/live/{slot}/state  {"slot":0,"label":"left-forearm","state":"connected","ts":1000,"firmware":"1.5.1970.2"}
//
// Angles are in degrees. Both topics are retained.
package live

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/recorder"
	"github.com/relabs-tech/wearable_recorder/internal/session"
)

// Topic kinds.
const (
	KindEuler = "euler"
	KindState = "state"
)

// EulerMessage is the payload of an euler topic.
type EulerMessage struct {
	Slot  int     `json:"slot"`
	Label string  `json:"label,omitempty"`
	TS    uint64  `json:"ts"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// StateMessage is the payload of a state topic.
type StateMessage struct {
	Slot     int    `json:"slot"`
	Label    string `json:"label,omitempty"`
	State    string `json:"state"`
	TS       uint64 `json:"ts"`
	Firmware string `json:"firmware,omitempty"`
}

// Publisher sends one message. *mqttclient.Publisher implements it.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// Tap is a recorder.Tap that republishes Euler rows and state changes.
type Tap struct {
	pub    Publisher
	prefix string
	log    *logging.Logger
	failed bool
}

// NewTap creates a tap publishing under prefix.
func NewTap(pub Publisher, prefix string, log *logging.Logger) *Tap {
	return &Tap{pub: pub, prefix: strings.TrimSuffix(prefix, "/"), log: log}
}

// Row publishes Euler rows; other modalities are ignored.
func (t *Tap) Row(s recorder.Sample) {
	if s.Modality != session.OrientationEuler || len(s.Values) != 3 {
		return
	}

	e := orientation.Euler{Roll: float32(s.Values[0]), Pitch: float32(s.Values[1]), Yaw: float32(s.Values[2])}
	roll, pitch, yaw := e.Degrees()
	t.publish(Topic(t.prefix, s.Slot, KindEuler), EulerMessage{
		Slot:  int(s.Slot),
		Label: s.Label,
		TS:    s.TS,
		Roll:  roll,
		Pitch: pitch,
		Yaw:   yaw,
	})
}

// DeviceState publishes a state change.
func (t *Tap) DeviceState(e recorder.DeviceEvent) {
	t.publish(Topic(t.prefix, e.Slot, KindState), StateMessage{
		Slot:     int(e.Slot),
		Label:    e.Label,
		State:    string(e.State),
		TS:       e.TS,
		Firmware: e.Firmware,
	})
}

func (t *Tap) publish(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		t.log.Error("live message encode failed", "topic", topic, "error", err)
		return
	}

	if err := t.pub.Publish(topic, true, payload); err != nil {
		// Log once per outage rather than once per sample.
		if !t.failed {
			t.log.Warn("live publish failed", "topic", topic, "error", err)
			t.failed = true
		}
		return
	}
	if t.failed {
		t.log.Info("live publish recovered", "topic", topic)
		t.failed = false
	}
}

// Topic returns "{prefix}/{slot}/{kind}".
func Topic(prefix string, slot device.Ordinal, kind string) string {
	return fmt.Sprintf("%s/%d/%s", prefix, slot, kind)
}

// Subscription is the wildcard matching every live topic under prefix.
func Subscription(prefix string) string {
	return prefix + "/+/+"
}

// ParseTopic splits a live topic into slot and kind.
func ParseTopic(prefix, topic string) (device.Ordinal, string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return 0, "", false
	}
	slotStr, kind, ok := strings.Cut(rest, "/")
	if !ok || (kind != KindEuler && kind != KindState) {
		return 0, "", false
	}
	slot, err := strconv.Atoi(slotStr)
	if err != nil || slot < 0 {
		return 0, "", false
	}
	return device.Ordinal(slot), kind, true
}
