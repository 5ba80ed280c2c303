// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
)

const dirPermissions = 0755

// Session identifies one set of files opened together.
type Session struct {
	// Timestamp is the epoch-seconds suffix shared by every file.
	Timestamp int64
	Slots     int
	Dir       string
}

// FileInfo describes one open log file.
type FileInfo struct {
	Modality Modality
	Slot     device.Ordinal
	Path     string
	Rows     uint64
}

type logFile struct {
	path string
	file *os.File
	csv  *csv.Writer
	rows uint64
}

// FileManager owns every log file of the current session: one per modality
// per device slot. It is the only holder of the file handles.
//
// FileManager is not safe for concurrent use.
type FileManager struct {
	dir     string
	now     func() time.Time
	log     *logging.Logger
	session Session
	slots   [][modalityCount]*logFile
}

// Option configures a FileManager.
type Option func(*FileManager)

// WithClock overrides the wall clock used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *FileManager) { m.now = now }
}

// WithLogger sets the logger used for non-fatal close failures.
func WithLogger(l *logging.Logger) Option {
	return func(m *FileManager) { m.log = l }
}

// NewFileManager creates a manager writing under dir. No files are opened
// until OpenSession is called.
func NewFileManager(dir string, opts ...Option) *FileManager {
	m := &FileManager{
		dir: dir,
		now: time.Now,
		log: logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenSession starts a new session with the given number of device slots.
//
// Every previously open file is closed before its slot is reopened, so no two
// live handles ever refer to the same slot. A failure to create any file
// closes the partially opened session and returns an *IOError.
func (m *FileManager) OpenSession(slots int) error {
	if slots < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSlots, slots)
	}

	ts := m.now().Unix()

	if err := os.MkdirAll(m.dir, dirPermissions); err != nil {
		return &IOError{Op: "mkdir", Path: m.dir, Err: err}
	}

	// Slots the new session no longer covers.
	for slot := slots; slot < len(m.slots); slot++ {
		m.closeSlot(slot)
	}
	if len(m.slots) > slots {
		m.slots = m.slots[:slots]
	}
	for len(m.slots) < slots {
		m.slots = append(m.slots, [modalityCount]*logFile{})
	}

	m.session = Session{}
	for slot := 0; slot < slots; slot++ {
		for _, mod := range Modalities {
			if old := m.slots[slot][mod]; old != nil {
				m.closeFile(old)
				m.slots[slot][mod] = nil
			}

			path := filepath.Join(m.dir, fileName(mod, slot, ts))
			lf, err := createLog(path, mod.Header())
			if err != nil {
				m.closeAll()
				return err
			}
			m.slots[slot][mod] = lf
		}
	}

	m.session = Session{Timestamp: ts, Slots: slots, Dir: m.dir}
	m.log.Info("session opened", "timestamp", ts, "slots", slots, "dir", m.dir)
	return nil
}

// Append writes one row to the file of modality mod for slot and flushes it.
func (m *FileManager) Append(mod Modality, slot device.Ordinal, row []string) error {
	if !mod.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownModality, int(mod))
	}
	if m.session.Slots == 0 {
		return ErrNoSession
	}
	if slot < 0 || int(slot) >= len(m.slots) {
		return fmt.Errorf("%w: slot %d, session has %d", ErrSlotOutOfRange, slot, len(m.slots))
	}
	if len(row) != mod.Columns() {
		return fmt.Errorf("%w: %s row has %d fields, want %d", ErrColumnCount, mod, len(row), mod.Columns())
	}

	lf := m.slots[slot][mod]
	if err := lf.csv.Write(row); err != nil {
		return &IOError{Op: "write", Path: lf.path, Err: err}
	}
	lf.csv.Flush()
	if err := lf.csv.Error(); err != nil {
		return &IOError{Op: "write", Path: lf.path, Err: err}
	}
	lf.rows++
	return nil
}

// Session returns the current session. The zero Session means none is open.
func (m *FileManager) Session() Session {
	return m.session
}

// Files lists the open files in slot, then modality order.
func (m *FileManager) Files() []FileInfo {
	var files []FileInfo
	for slot := range m.slots {
		for _, mod := range Modalities {
			lf := m.slots[slot][mod]
			if lf == nil {
				continue
			}
			files = append(files, FileInfo{
				Modality: mod,
				Slot:     device.Ordinal(slot),
				Path:     lf.path,
				Rows:     lf.rows,
			})
		}
	}
	return files
}

// Rows returns the number of data rows written to one file of the session.
func (m *FileManager) Rows(mod Modality, slot device.Ordinal) uint64 {
	if !mod.valid() || slot < 0 || int(slot) >= len(m.slots) || m.slots[slot][mod] == nil {
		return 0
	}
	return m.slots[slot][mod].rows
}

// Close flushes and closes every file. The manager can be reused with
// another OpenSession call.
func (m *FileManager) Close() error {
	var errs []error
	for slot := range m.slots {
		for _, mod := range Modalities {
			lf := m.slots[slot][mod]
			if lf == nil {
				continue
			}
			if err := lf.close(); err != nil {
				errs = append(errs, err)
			}
			m.slots[slot][mod] = nil
		}
	}
	m.slots = nil
	m.session = Session{}
	return errors.Join(errs...)
}

func (m *FileManager) closeSlot(slot int) {
	for _, mod := range Modalities {
		if lf := m.slots[slot][mod]; lf != nil {
			m.closeFile(lf)
			m.slots[slot][mod] = nil
		}
	}
}

func (m *FileManager) closeAll() {
	for slot := range m.slots {
		m.closeSlot(slot)
	}
	m.session = Session{}
}

// closeFile releases a file of a session being replaced. A failure here only
// affects the old session, so it is logged rather than returned.
func (m *FileManager) closeFile(lf *logFile) {
	if err := lf.close(); err != nil {
		m.log.Warn("closing previous log file failed", "path", lf.path, "error", err)
	}
}

func fileName(mod Modality, slot int, ts int64) string {
	return fmt.Sprintf("%s-%d-%d.csv", mod, slot, ts)
}

func createLog(path string, header []string) (*logFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, &IOError{Op: "write header", Path: path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, &IOError{Op: "write header", Path: path, Err: err}
	}

	return &logFile{path: path, file: f, csv: w}, nil
}

func (lf *logFile) close() error {
	lf.csv.Flush()
	flushErr := lf.csv.Error()
	if err := lf.file.Close(); err != nil {
		return &IOError{Op: "close", Path: lf.path, Err: err}
	}
	if flushErr != nil {
		return &IOError{Op: "flush", Path: lf.path, Err: flushErr}
	}
	return nil
}
