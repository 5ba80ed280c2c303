// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package catalog keeps a SQLite index of recording sessions and the files
// each one produced.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/relabs-tech/wearable_recorder/internal/session"
)

const (
	dirPermissions = 0750
	busyTimeoutMS  = 5000
	pingTimeout    = 5 * time.Second
	defaultLimit   = 50

	// Fixed width so that text order is time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	timestamp   INTEGER NOT NULL,
	slots       INTEGER NOT NULL,
	dir         TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE TABLE IF NOT EXISTS session_files (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	modality   TEXT NOT NULL,
	slot       INTEGER NOT NULL,
	path       TEXT NOT NULL,
	rows       INTEGER NOT NULL,
	PRIMARY KEY (session_id, modality, slot)
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`

// Session is one catalogued recording session.
type Session struct {
	ID         string     `json:"id"`
	Timestamp  int64      `json:"timestamp"`
	Slots      int        `json:"slots"`
	Dir        string     `json:"dir"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Files      []File     `json:"files,omitempty"`
}

// File is one log file of a finished session.
type File struct {
	Modality string `json:"modality"`
	Slot     int    `json:"slot"`
	Path     string `json:"path"`
	Rows     uint64 `json:"rows"`
}

// Store is the SQLite-backed catalog. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL", path, busyTimeoutMS)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying catalog connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing catalog: %w", err)
	}
	return nil
}

// BeginSession records a newly opened session and returns its id.
func (s *Store) BeginSession(ctx context.Context, sess session.Session) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, timestamp, slots, dir, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, sess.Timestamp, sess.Slots, sess.Dir, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting session: %w", err)
	}
	return id, nil
}

// FinishSession marks a session finished and stores its files.
func (s *Store) FinishSession(ctx context.Context, id string, files []session.FileInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ? WHERE id = ?`,
		s.now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating session: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for _, f := range files {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO session_files (session_id, modality, slot, path, rows) VALUES (?, ?, ?, ?, ?)`,
			id, f.Modality.String(), int(f.Slot), f.Path, int64(f.Rows),
		)
		if err != nil {
			return fmt.Errorf("inserting session file: %w", err)
		}
	}

	return tx.Commit()
}

// Sessions lists sessions, most recent first, without their files.
// limit <= 0 uses a default page size.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, slots, dir, started_at, finished_at
		 FROM sessions ORDER BY started_at DESC, timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}

// Session returns one session with its files.
func (s *Store) Session(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, slots, dir, started_at, finished_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT modality, slot, path, rows FROM session_files WHERE session_id = ? ORDER BY slot, modality`, id)
	if err != nil {
		return Session{}, fmt.Errorf("querying session files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f File
			n int64
		)
		if err := rows.Scan(&f.Modality, &f.Slot, &f.Path, &n); err != nil {
			return Session{}, fmt.Errorf("scanning session file: %w", err)
		}
		f.Rows = uint64(n)
		sess.Files = append(sess.Files, f)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("iterating session files: %w", err)
	}
	return sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		sess     Session
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&sess.ID, &sess.Timestamp, &sess.Slots, &sess.Dir, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scanning session: %w", err)
	}

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Session{}, fmt.Errorf("parsing started_at: %w", err)
	}
	sess.StartedAt = t

	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return Session{}, fmt.Errorf("parsing finished_at: %w", err)
		}
		sess.FinishedAt = &t
	}
	return sess, nil
}
