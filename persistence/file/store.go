// Package file persists the history document as a JSON file, written
// atomically so a crash mid-write never corrupts the previous durable
// state.
package file

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/item"
)

// Store writes the history list to a single JSON file via
// temp-file-then-rename.
type Store struct {
	path string
}

// NewStore creates a store targeting the given path. Parent directories
// are created on the first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the configured file path.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the durable document with the given entries.
func (s *Store) Save(snapshots []item.Snapshot) error {
	if snapshots == nil {
		snapshots = []item.Snapshot{}
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return errors.NewPersistenceError("save", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewPersistenceError("save", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.NewPersistenceError("save", s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewPersistenceError("save", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewPersistenceError("save", s.path, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewPersistenceError("save", s.path, err)
	}
	return nil
}

// Load reads the document back. A missing file is a normal first run
// and returns (nil, nil). Malformed entries are skipped with a warning;
// only an unreadable file or an undecodable top-level document is an
// error for the caller to log.
func (s *Store) Load() ([]item.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewPersistenceError("load", s.path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewPersistenceError("load", s.path, err)
	}

	snapshots := make([]item.Snapshot, 0, len(raw))
	for i, entry := range raw {
		var snap item.Snapshot
		if err := json.Unmarshal(entry, &snap); err != nil {
			slog.Warn("Skipping malformed history entry", "path", s.path, "index", i, "error", err)
			continue
		}
		if snap.ID == "" {
			slog.Warn("Skipping history entry without id", "path", s.path, "index", i)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}
