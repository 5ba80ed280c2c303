// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttclient holds the paho connection setup shared by every tool
// that talks to the broker.
package mqttclient

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/wearable_recorder/internal/logging"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	subscribeTimeout  = 5 * time.Second
	keepAlive         = 30 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

var (
	// ErrConnectionFailed is returned when the broker cannot be reached.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrTimeout is returned when a publish or subscribe is not acknowledged.
	ErrTimeout = errors.New("mqtt: operation timed out")
)

// Options returns client options for broker and clientID with auto-reconnect
// enabled. Lost connections are logged on log.
func Options(broker, clientID string, log *logging.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "broker", broker, "error", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Debug("mqtt connected", "broker", broker, "client_id", clientID)
	})
	return opts
}

// Connect creates a client from opts and waits for the first connection.
func Connect(opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return client, nil
}

// Dial is Options followed by Connect.
func Dial(broker, clientID string, log *logging.Logger) (mqtt.Client, error) {
	client, err := Connect(Options(broker, clientID, log))
	if err != nil {
		return nil, err
	}
	log.Info("connected to MQTT broker", "broker", broker, "client_id", clientID)
	return client, nil
}

// Subscribe subscribes handler to topic at QoS 0 and waits for the ack.
func Subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("%w: subscribe %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Disconnect closes the connection, letting in-flight work finish briefly.
func Disconnect(client mqtt.Client) {
	client.Disconnect(disconnectQuiesce)
}

// Publisher publishes payloads through a connected client.
type Publisher struct {
	client mqtt.Client
}

// NewPublisher wraps client.
func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload at QoS 0 and waits for it to be handed to the network.
func (p *Publisher) Publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: publish %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
