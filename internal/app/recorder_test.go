// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/catalog"
	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mock"
	"github.com/relabs-tech/wearable_recorder/internal/transport/wire"
)

var fw = transport.FirmwareVersion{Major: 1, Minor: 5, Patch: 1970, HardwareRev: 2}

// stopAfter cancels the recording once the wrapped hub has run limit times.
type stopAfter struct {
	transport.Hub
	limit  int
	runs   int
	cancel context.CancelFunc
}

func (s *stopAfter) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	err := s.Hub.Run(ctx, timeout, l)
	s.runs++
	if s.runs >= s.limit {
		s.cancel()
	}
	return err
}

// fixedClock stops the wall clock at now. sleep advances it and the total
// time slept is returned.
func fixedClock(t *testing.T, now time.Time) *time.Duration {
	t.Helper()
	var slept time.Duration
	oldClock, oldSleep := clock, sleep
	clock = func() time.Time { return now.Add(slept) }
	sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}
	t.Cleanup(func() { clock, sleep = oldClock, oldSleep })
	return &slept
}

// rotateAfterFirstRun queues a second gyro sample and asks for a new
// session after the first run, then cancels after the second.
type rotateAfterFirstRun struct {
	*mock.Hub
	reopen chan os.Signal
	cancel context.CancelFunc
	runs   int
}

func (r *rotateAfterFirstRun) Run(ctx context.Context, timeout time.Duration, l transport.Listener) error {
	err := r.Hub.Run(ctx, timeout, l)
	r.runs++
	switch r.runs {
	case 1:
		r.Hub.Push(wire.GyroEvent("left", 3, imu.Vector3{Z: 2}))
		r.reopen <- syscall.SIGHUP
	case 2:
		r.cancel()
	}
	return err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func glob(t *testing.T, dir, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		t.Fatalf("Glob(%s) error = %v", pattern, err)
	}
	return matches
}

func TestRecordWritesScriptedSession(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := mock.New()
	hub.Push(
		wire.PairEvent("left", 1, fw),
		wire.PairEvent("right", 2, fw),
		wire.AccelEvent("right", 3, imu.Vector3{X: 0.5, Y: 0, Z: 1}),
		wire.AccelEvent("stranger", 4, imu.Vector3{}),
	)

	if err := Record(ctx, cfg, &stopAfter{Hub: hub, limit: 1, cancel: cancel}, logging.Discard(), nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	files := glob(t, cfg.OutputDir, "*.csv")
	if len(files) != 10 {
		t.Fatalf("session files = %d, want 10", len(files))
	}

	accel := glob(t, cfg.OutputDir, "accelerometer-1-*.csv")
	if len(accel) != 1 {
		t.Fatalf("accelerometer-1 files = %v", accel)
	}
	data, err := os.ReadFile(accel[0])
	if err != nil {
		t.Fatal(err)
	}
	if want := "timestamp,x,y,z\n3,0.5,0,1\n"; string(data) != want {
		t.Errorf("%s = %q, want %q", accel[0], data, want)
	}

	cmds := hub.Commands()
	if len(cmds) != 2 {
		t.Errorf("commands = %+v, want one stream request per paired device", cmds)
	}
}

func TestRecordReturnsTransportError(t *testing.T) {
	cfg := testConfig(t)
	hub := mock.New()
	hub.Close()

	err := Record(context.Background(), cfg, hub, logging.Discard(), nil)
	if !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("Record() error = %v, want ErrClosed", err)
	}
}

func TestRecordRotatesSessionOnSignal(t *testing.T) {
	fixedClock(t, time.Unix(1700000000, 0))
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.db")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reopen := make(chan os.Signal, 1)
	reopen <- syscall.SIGHUP

	hub := mock.New()
	hub.Push(wire.PairEvent("left", 1, fw), wire.GyroEvent("left", 2, imu.Vector3{Z: 1}))

	if err := Record(ctx, cfg, &stopAfter{Hub: hub, limit: 1, cancel: cancel}, logging.Discard(), reopen); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	store, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	defer store.Close()

	sessions, err := store.Sessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Sessions() = %d entries, want 2", len(sessions))
	}
	for _, s := range sessions {
		if s.FinishedAt == nil {
			t.Errorf("session %s not finished", s.ID)
		}
	}

	// Only the second session saw the gyro row.
	latest, err := store.Session(context.Background(), sessions[0].ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	var rows uint64
	for _, f := range latest.Files {
		if strings.HasPrefix(filepath.Base(f.Path), "gyro-0-") {
			rows = f.Rows
		}
	}
	if rows != 1 {
		t.Errorf("latest session gyro-0 rows = %d, want 1", rows)
	}
}

func TestRotationKeepsFinishedSessionRows(t *testing.T) {
	const start = 1700000000
	slept := fixedClock(t, time.Unix(start, 0))
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := mock.New()
	hub.Push(wire.PairEvent("left", 1, fw), wire.GyroEvent("left", 2, imu.Vector3{Z: 1}))
	reopen := make(chan os.Signal, 1)

	err := Record(ctx, cfg, &rotateAfterFirstRun{Hub: hub, reopen: reopen, cancel: cancel}, logging.Discard(), reopen)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if *slept != time.Second {
		t.Errorf("rotation waited %v, want 1s", *slept)
	}

	for ts, wantRow := range map[int64]string{start: "2,", start + 1: "3,"} {
		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("gyro-0-%d.csv", ts))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", filepath.Base(path), err)
		}
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[1], wantRow) {
			t.Errorf("%s = %q, want header and one row starting %q", filepath.Base(path), data, wantRow)
		}
	}
}

func TestRecordRejectsBadSetup(t *testing.T) {
	cfg := testConfig(t)
	cfg.DeviceLabelsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := Record(context.Background(), cfg, mock.New(), logging.Discard(), nil); err == nil {
		t.Error("Record() with missing labels file error = nil")
	}

	cfg = testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = blocker
	if err := Record(context.Background(), cfg, mock.New(), logging.Discard(), nil); err == nil {
		t.Error("Record() with unusable OUTPUT_DIR error = nil")
	}
}

func TestOpenHub(t *testing.T) {
	cfg := config.Default()
	h, err := OpenHub(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("OpenHub(mock) error = %v", err)
	}
	if _, ok := h.(*mock.Hub); !ok {
		t.Errorf("OpenHub(mock) = %T", h)
	}
	h.Close()

	cfg.Transport = "carrier-pigeon"
	if _, err := OpenHub(cfg, logging.Discard()); err == nil {
		t.Error("OpenHub(unknown) error = nil")
	}
}
