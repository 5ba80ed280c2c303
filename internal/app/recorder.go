// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/catalog"
	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/live"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/mirror"
	"github.com/relabs-tech/wearable_recorder/internal/mqttclient"
	"github.com/relabs-tech/wearable_recorder/internal/recorder"
	"github.com/relabs-tech/wearable_recorder/internal/session"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/imuhub"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mock"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mqtthub"
	"github.com/relabs-tech/wearable_recorder/internal/transport/serialhub"
)

// Wall clock for session names and the wait between rotations. Replaced in
// tests.
var (
	clock = time.Now
	sleep = sleepContext
)

// RunRecorder records from the configured transport until ctx is cancelled
// or the transport fails. SIGHUP closes the current session and starts a
// new one.
func RunRecorder(ctx context.Context) error {
	cfg := config.Get()
	log := NewLogger(cfg).With("component", "recorder")

	hub, err := OpenHub(cfg, log)
	if err != nil {
		return err
	}
	defer hub.Close()

	reopen := make(chan os.Signal, 1)
	signal.Notify(reopen, syscall.SIGHUP)
	defer signal.Stop(reopen)

	return Record(ctx, cfg, hub, log, reopen)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config) *logging.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

// OpenHub connects the transport selected by TRANSPORT.
func OpenHub(cfg *config.Config, log *logging.Logger) (transport.Hub, error) {
	switch cfg.Transport {
	case config.TransportMock:
		log.Info("using simulated devices", "devices", cfg.MockDevices, "interval", cfg.MockSampleInterval())
		return mock.NewSimulated(cfg.MockDevices, cfg.MockSampleInterval()), nil

	case config.TransportSerial:
		h, err := serialhub.Open(cfg.SerialPort, cfg.SerialBaudRate, log.With("component", "serial"))
		if err != nil {
			return nil, err
		}
		return h, nil

	case config.TransportMQTT:
		h, err := mqtthub.Dial(cfg.MQTTBroker, cfg.MQTTClientIDRecorder,
			cfg.TopicBridgeEvents, cfg.TopicBridgeCommands, log.With("component", "mqtt-bridge"))
		if err != nil {
			return nil, err
		}
		return h, nil

	case config.TransportIMU:
		sensors := make([]imuhub.Sensor, 0, len(cfg.IMUSPIDevices))
		for i, dev := range cfg.IMUSPIDevices {
			s, err := imuhub.OpenMPU9250(dev, cfg.IMUCSPins[i], cfg.IMUAccelRange, cfg.IMUGyroRange, log)
			if err != nil {
				return nil, fmt.Errorf("imu %s: %w", dev, err)
			}
			sensors = append(sensors, s)
		}
		h, err := imuhub.New(sensors, cfg.IMUSPIDevices, cfg.IMUSampleInterval(), log.With("component", "imu"))
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

// Record drives hub into a recorder writing under cfg.OutputDir. A value on
// reopen rotates the session.
func Record(ctx context.Context, cfg *config.Config, hub transport.Hub, log *logging.Logger, reopen <-chan os.Signal) error {
	unknown, err := recorder.ParseUnknownPolicy(cfg.UnknownDevicePolicy)
	if err != nil {
		return err
	}
	onError, err := recorder.ParseErrorPolicy(cfg.AppendErrorPolicy)
	if err != nil {
		return err
	}

	var labels device.Labels
	if cfg.DeviceLabelsFile != "" {
		if labels, err = device.LoadLabels(cfg.DeviceLabelsFile); err != nil {
			return err
		}
		log.Info("loaded device labels", "file", cfg.DeviceLabelsFile, "labels", len(labels))
	}

	files := session.NewFileManager(cfg.OutputDir, session.WithLogger(log), session.WithClock(clock))
	defer files.Close()

	rs := &recordingSession{files: files, slots: cfg.MaxDevices, log: log}
	if cfg.CatalogPath != "" {
		store, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		rs.catalog = store
	}
	if err := rs.open(ctx); err != nil {
		return err
	}
	defer rs.finish()

	var taps []recorder.Tap
	if cfg.LivePublish {
		client, err := mqttclient.Dial(cfg.MQTTBroker, cfg.MQTTClientIDRecorder+"-live", log)
		if err != nil {
			return err
		}
		defer mqttclient.Disconnect(client)
		taps = append(taps, live.NewTap(mqttclient.NewPublisher(client), cfg.TopicLivePrefix, log))
	}
	if cfg.InfluxEnabled {
		m, err := mirror.Connect(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, log)
		if err != nil {
			return err
		}
		defer m.Close()
		taps = append(taps, m.Tap())
	}

	rec := recorder.New(device.NewRegistry[transport.Handle](cfg.MaxDevices), files,
		recorder.WithLabels(labels),
		recorder.WithUnknownPolicy(unknown),
		recorder.WithErrorPolicy(onError),
		recorder.WithTaps(taps...),
		recorder.WithLogger(log),
	)
	defer func() {
		st := rec.Stats()
		log.Info("recording stopped",
			"written", st.Written, "failed", st.Failed, "dropped", st.Dropped, "rejected", st.Rejected)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reopen:
			if err := rs.rotate(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		default:
		}

		if err := hub.Run(ctx, cfg.PollTimeout(), rec); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: %w", err)
		}
		if err := rec.Err(); err != nil {
			return err
		}
	}
}

// recordingSession ties the open file set to its catalog entry.
type recordingSession struct {
	files   *session.FileManager
	catalog *catalog.Store
	slots   int
	log     *logging.Logger
	id      string
}

func (rs *recordingSession) open(ctx context.Context) error {
	if err := rs.files.OpenSession(rs.slots); err != nil {
		return err
	}
	if rs.catalog == nil {
		return nil
	}
	id, err := rs.catalog.BeginSession(ctx, rs.files.Session())
	if err != nil {
		return err
	}
	rs.id = id
	rs.log.Info("session catalogued", "id", id)
	return nil
}

// rotate finishes the current session and opens the next. Files are named by
// epoch second, so it waits for the second to change rather than truncate the
// files it just finished.
func (rs *recordingSession) rotate(ctx context.Context) error {
	rs.finish()
	next := time.Unix(rs.files.Session().Timestamp+1, 0)
	if wait := next.Sub(clock()); wait > 0 {
		rs.log.Info("delaying session rotation", "wait", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return rs.open(ctx)
}

// finish records the row counts of the current session. It runs on shutdown
// too, so it does not use the caller's context.
func (rs *recordingSession) finish() {
	if rs.catalog == nil || rs.id == "" {
		return
	}
	if err := rs.catalog.FinishSession(context.Background(), rs.id, rs.files.Files()); err != nil {
		rs.log.Warn("finishing catalog session failed", "id", rs.id, "error", err)
	}
	rs.id = ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
