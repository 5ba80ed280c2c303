// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command display shows live device state on an SSD1306 OLED.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/wearable_recorder/internal/app"
	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
)

func main() {
	configPath := flag.String("config", "wearable_config.txt", "path to the KEY=VALUE config file")
	flag.Parse()

	log := logging.Default().With("component", "display")
	log.Info("starting OLED display")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDisplay(ctx); err != nil {
		log.Error("fatal", "error", err)
		stop()
		os.Exit(1)
	}
}
