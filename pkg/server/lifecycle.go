package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

// ErrAlreadyRunning is returned when the PID file names a live process.
var ErrAlreadyRunning = errors.New("arcadesyncd already running")

// WritePIDFile records the current process ID at path.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID from path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file. A missing file is not an error.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsRunning reports whether the PID file names a live process other than
// the caller.
func IsRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}
	return processAlive(pid)
}

// RecoverStale removes a PID file left behind by a server that exited
// without cleaning up. It returns ErrAlreadyRunning if the recorded process
// is still alive. A missing or unreadable PID file needs no recovery.
func RecoverStale(pidPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return nil //nolint:nilerr // missing or malformed pid file is not a failure
	}
	if pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	logging.Get("server").Warn("removing stale pid file", "path", pidPath, "stale_pid", pid)
	return RemovePIDFile(pidPath)
}
