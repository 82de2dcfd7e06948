// Package server implements the arcadesync distribution server: the package
// repository, the free play flag store and the HTTP endpoints agents poll.
package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

var (
	// ErrNotFound is returned when a package or the config blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for empty package names and names containing "..".
	ErrInvalidName = errors.New("invalid package name")
)

// Repository reads packages and the shared config blob from disk.
// It keeps no in-memory state: every call reflects the filesystem at that moment.
type Repository struct {
	fs         afero.Fs
	updatesDir string
	ext        string
	configPath string
}

// NewRepository returns a repository serving packages with extension ext
// (e.g. ".zip") from updatesDir and the config blob at configPath.
// An empty ext serves every regular file.
func NewRepository(fs afero.Fs, updatesDir, ext, configPath string) *Repository {
	return &Repository{
		fs:         fs,
		updatesDir: updatesDir,
		ext:        ext,
		configPath: configPath,
	}
}

// UpdatesDir returns the packages directory.
func (r *Repository) UpdatesDir() string {
	return r.updatesDir
}

// EnsureUpdatesDir creates the packages directory if missing.
func (r *Repository) EnsureUpdatesDir() (created bool, err error) {
	if _, err := r.fs.Stat(r.updatesDir); err == nil {
		return false, nil
	}
	if err := r.fs.MkdirAll(r.updatesDir, 0o755); err != nil {
		return false, fmt.Errorf("creating updates folder: %w", err)
	}
	return true, nil
}

// IsPackage reports whether a file name carries the package extension.
func (r *Repository) IsPackage(name string) bool {
	if r.ext == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), r.ext)
}

// ListPackages hashes every package in the updates folder, non-recursively.
// A missing folder yields an empty manifest. Files that cannot be hashed are
// left out and logged.
func (r *Repository) ListPackages() (*types.Manifest, error) {
	m := types.NewManifest()

	entries, err := afero.ReadDir(r.fs, r.updatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading updates folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !r.IsPackage(entry.Name()) {
			continue
		}

		sum, err := digest.File(r.fs, filepath.Join(r.updatesDir, entry.Name()))
		if err != nil {
			logging.Get("server").Warn("skipping unreadable package", "package", entry.Name(), "error", err)
			continue
		}

		m.Files = append(m.Files, types.PackageEntry{Name: entry.Name(), Hash: sum})
	}

	return m, nil
}

// CleanName validates a requested package name and reduces it to its final
// path element.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	base := types.PackageEntry{Name: name}.BaseName()
	if base == "" || base == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// OpenPackage opens a package for reading. The caller closes the file.
func (r *Repository) OpenPackage(name string) (afero.File, os.FileInfo, error) {
	base, err := CleanName(name)
	if err != nil {
		return nil, nil, err
	}
	if !r.IsPackage(base) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, base)
	}

	path := filepath.Join(r.updatesDir, base)
	info, err := r.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, base)
		}
		return nil, nil, fmt.Errorf("stat package: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, base)
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening package: %w", err)
	}
	return f, info, nil
}

// ConfigBlob returns the raw bytes of the distributed config file.
func (r *Repository) ConfigBlob() ([]byte, error) {
	data, err := afero.ReadFile(r.fs, r.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return data, nil
}
