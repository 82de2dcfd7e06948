package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotationConfig configures log file rotation behavior.
type RotationConfig struct {
	// MaxSize is the size in bytes that triggers rotation. Zero uses 10MB.
	MaxSize int64

	// MaxAge is the number of days rotated files are kept. Zero keeps them forever.
	MaxAge int

	// MaxBackups caps the number of rotated files. Zero means no cap.
	MaxBackups int

	// Daily rotates the log file when the day changes.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when nothing is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter implements io.WriteCloser with size and daily rotation.
// It is safe for concurrent use and takes an OS file lock around each write
// so that the agent CLI and a running agent can share one log file.
type RotatingWriter struct {
	path   string
	cfg    RotationConfig
	mu     sync.Mutex
	file   *os.File
	size   int64
	opened time.Time
	now    func() time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg, now: time.Now}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()

	return w, nil
}

// Write appends p, rotating first when p would overflow MaxSize or the day changed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.due(int64(len(p))) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := lockFile(w.file); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	defer unlockFile(w.file)

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the log file. Further writes fail with os.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return fmt.Errorf("syncing log file: %w", syncErr)
	}
	return closeErr
}

// Backups lists rotated files for this log, newest first.
func (w *RotatingWriter) Backups() []string {
	files := w.backups()
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.path)
	}
	return paths
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	w.opened = info.ModTime()
	return nil
}

func (w *RotatingWriter) due(incoming int64) bool {
	if w.size > 0 && w.size+incoming > w.cfg.MaxSize {
		return true
	}
	if !w.cfg.Daily {
		return false
	}
	y1, m1, d1 := w.now().Date()
	y2, m2, d2 := w.opened.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, w.rotatedName(w.now())); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.opened = w.now()
	w.prune()

	return nil
}

// rotatedName returns base.2006-01-02-150405.ext, adding a counter when a
// file for the same second already exists.
func (w *RotatingWriter) rotatedName(at time.Time) string {
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	stamp := at.Format("2006-01-02-150405")

	name := fmt.Sprintf("%s.%s%s", base, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s.%s-%d%s", base, stamp, i, ext)
	}
}

type backupFile struct {
	path    string
	modTime time.Time
}

func (w *RotatingWriter) backups() []backupFile {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []backupFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path > files[j].path
		}
		return files[i].modTime.After(files[j].modTime)
	})
	return files
}

// prune removes rotated files beyond MaxBackups or older than MaxAge.
// Failures are ignored; the next rotation retries.
func (w *RotatingWriter) prune() {
	maxAge := time.Duration(w.cfg.MaxAge) * 24 * time.Hour
	now := w.now()

	for i, f := range w.backups() {
		tooMany := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := w.cfg.MaxAge > 0 && now.Sub(f.modTime) > maxAge
		if tooMany || tooOld {
			_ = os.Remove(f.path)
		}
	}
}
