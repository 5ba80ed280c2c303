// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/wearable_recorder/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	id, err := s.BeginSession(ctx, session.Session{Timestamp: 1777626000, Slots: 2, Dir: "data"})
	if err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("session id %q is not a uuid: %v", id, err)
	}

	s.now = func() time.Time { return start.Add(time.Minute) }
	files := []session.FileInfo{
		{Modality: session.EMG, Slot: 0, Path: "data/emg-0-1777626000.csv", Rows: 1200},
		{Modality: session.Gyroscope, Slot: 1, Path: "data/gyro-1-1777626000.csv", Rows: 300},
	}
	if err := s.FinishSession(ctx, id, files); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}

	got, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got.Timestamp != 1777626000 || got.Slots != 2 || got.Dir != "data" {
		t.Errorf("Session() = %+v", got)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(start.Add(time.Minute)) {
		t.Errorf("FinishedAt = %v", got.FinishedAt)
	}
	if len(got.Files) != 2 {
		t.Fatalf("Files = %+v", got.Files)
	}
	if got.Files[0].Modality != "emg" || got.Files[0].Rows != 1200 || got.Files[1].Slot != 1 {
		t.Errorf("Files = %+v", got.Files)
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		id, err := s.BeginSession(ctx, session.Session{Timestamp: at.Unix(), Slots: 1, Dir: "data"})
		if err != nil {
			t.Fatalf("BeginSession() error = %v", err)
		}
		ids = append(ids, id)
	}

	got, err := s.Sessions(ctx, 2)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("Sessions(2) = %+v", got)
	}
	if got[0].FinishedAt != nil {
		t.Error("unfinished session has FinishedAt")
	}

	all, err := s.Sessions(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Errorf("Sessions(0) = %d sessions, %v", len(all), err)
	}
}

func TestUnknownSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.FinishSession(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishSession() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Session(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Session() error = %v, want ErrNotFound", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	id, err := s.BeginSession(ctx, session.Session{Timestamp: 1, Slots: 1, Dir: "data"})
	if err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Session(ctx, id); err != nil {
		t.Errorf("Session() after reopen error = %v", err)
	}
}
