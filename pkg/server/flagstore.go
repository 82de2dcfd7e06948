package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// FlagStore persists the free play flag as {"freePlay": bool}.
// Writes are serialized and replace the file atomically.
type FlagStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFlagStore returns a store backed by the file at path.
func NewFlagStore(fs afero.Fs, path string) *FlagStore {
	return &FlagStore{fs: fs, path: path}
}

// Get returns the stored value. exists is false when the flag was never set.
// A file that cannot be parsed counts as set to false.
func (s *FlagStore) Get() (value bool, exists bool, err error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("reading flag file: %w", err)
	}

	var record struct {
		FreePlay *bool `json:"freePlay"`
	}
	if err := json.Unmarshal(data, &record); err != nil || record.FreePlay == nil {
		logging.Get("server").Warn("flag file unreadable, reporting false", "path", s.path, "error", err)
		return false, true, nil
	}
	return *record.FreePlay, true, nil
}

// Set persists value. The file is synced before Set returns.
func (s *FlagStore) Set(value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating config folder: %w", err)
	}

	data, err := json.Marshal(types.FreePlay{FreePlay: value})
	if err != nil {
		return fmt.Errorf("encoding flag: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := writeSynced(s.fs, tmpPath, data); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("writing flag file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("replacing flag file: %w", err)
	}
	return nil
}

func writeSynced(fs afero.Fs, path string, data []byte) error {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
