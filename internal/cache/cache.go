// Package cache persists the last good schedule snapshot to a local file so a
// restarted process has data to show before the first network round trip.
//
// The file holds the bare array shape produced by roster.Encode. Its
// modification time carries the snapshot's FetchedAt.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/crewsync/internal/roster"
)

// StorageError reports an I/O or corruption fault on the cache file. A
// missing file is not a StorageError.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store reads and writes one snapshot file. Only the sync engine writes it.
type Store struct {
	path string
}

// New returns a Store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached snapshot, or nil when no cache file exists.
func (s *Store) Load() (*roster.Snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "stat", Path: s.path, Err: err}
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	snap, err := roster.Decode(raw, info.ModTime())
	if err != nil {
		return nil, &StorageError{Op: "decode", Path: s.path, Err: err}
	}
	return &snap, nil
}

// Save writes snap atomically. An empty snapshot is skipped so a bad fetch
// never overwrites a good cache.
func (s *Store) Save(snap roster.Snapshot) error {
	if snap.IsEmpty() {
		return nil
	}

	raw, err := roster.Encode(snap)
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "create", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return &StorageError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if !snap.FetchedAt.IsZero() {
		if err := os.Chtimes(tmpPath, snap.FetchedAt, snap.FetchedAt); err != nil {
			return &StorageError{Op: "chtimes", Path: tmpPath, Err: err}
		}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &StorageError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}
