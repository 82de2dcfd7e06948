package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Marker holds the last free play value applied on this machine.
type Marker interface {
	// Load returns nil when no value has been recorded.
	Load() (*bool, error)
	Store(value bool) error
}

// FileMarker stores the value as "True" or "False" in a single-line file.
type FileMarker struct {
	fs   afero.Fs
	path string
}

// NewFileMarker returns a marker backed by path.
func NewFileMarker(fs afero.Fs, path string) *FileMarker {
	return &FileMarker{fs: fs, path: path}
}

// Path returns the marker file location.
func (m *FileMarker) Path() string {
	return m.path
}

// Load reads the marker. Missing or unrecognized content counts as unset.
func (m *FileMarker) Load() (*bool, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading marker: %w", err)
	}
	return ParseMarker(string(data)), nil
}

// Store writes the marker durably.
func (m *FileMarker) Store(value bool) error {
	if err := writeFileAtomic(m.fs, m.path, []byte(FormatMarker(value))); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	return nil
}

// ParseMarker parses marker content case-insensitively. It returns nil for
// anything other than true or false.
func ParseMarker(s string) *bool {
	switch s = strings.TrimSpace(s); {
	case strings.EqualFold(s, "true"):
		v := true
		return &v
	case strings.EqualFold(s, "false"):
		v := false
		return &v
	}
	return nil
}

// FormatMarker renders value in marker form.
func FormatMarker(value bool) string {
	if value {
		return "True"
	}
	return "False"
}

// writeFileAtomic replaces path with data via a synced temp file and rename.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}
