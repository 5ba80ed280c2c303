// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/live"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
	"github.com/relabs-tech/wearable_recorder/internal/recorder"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
	displayLines  = 4
)

// RunDisplay shows the live state of every slot on an SSD1306 OLED until
// ctx is cancelled.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()
	log := NewLogger(cfg).With("component", "display")

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Info("display initialized", "bus", cfg.DisplayI2CBus)

	if err := draw(dev, []string{"Wearable", "recorder", "", "Waiting..."}); err != nil {
		log.Warn("showing splash failed", "error", err)
	}

	client, err := mqttclient.Dial(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, log)
	if err != nil {
		return err
	}
	defer mqttclient.Disconnect(client)

	board := live.NewBoard(cfg.TopicLivePrefix)
	topic := live.Subscription(cfg.TopicLivePrefix)
	err = mqttclient.Subscribe(client, topic, func(_ mqtt.Client, msg mqtt.Message) {
		if _, err := board.Update(msg.Topic(), msg.Payload()); err != nil {
			log.Debug("ignoring live message", "topic", msg.Topic(), "error", err)
		}
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.DisplayInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := draw(dev, statusLines(board.Snapshot())); err != nil {
				log.Warn("updating display failed", "error", err)
			}
		}
	}
}

// statusLines renders one header line and one line per slot, at most
// displayLines in total. Each slot line reads
// "slot state roll pitch yaw" in whole degrees.
func statusLines(views []live.DeviceView) []string {
	lines := []string{fmt.Sprintf("Wearables: %d", len(views))}

	room := displayLines - 1
	for i, v := range views {
		if i == room-1 && len(views) > room {
			lines = append(lines, fmt.Sprintf("+%d more", len(views)-i))
			break
		}

		state := '?'
		if v.State != nil {
			switch recorder.State(v.State.State) {
			case recorder.StatePaired:
				state = 'P'
			case recorder.StateConnected:
				state = 'C'
			case recorder.StateDisconnected:
				state = 'D'
			}
		}

		if e := v.Euler; e != nil {
			lines = append(lines, fmt.Sprintf("%d %c %4.0f %4.0f %4.0f", v.Slot, state, e.Roll, e.Pitch, e.Yaw))
		} else {
			lines = append(lines, fmt.Sprintf("%d %c  waiting", v.Slot, state))
		}
	}
	return lines
}

func render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == displayLines {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func draw(dev *ssd1306.Dev, lines []string) error {
	return dev.Draw(dev.Bounds(), render(lines), image.Point{})
}
