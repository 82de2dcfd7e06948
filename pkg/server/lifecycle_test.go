package server

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "arcadesyncd.pid")

	require.NoError(t, WritePIDFile(path))
	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	// The caller's own PID never counts as another instance.
	assert.False(t, IsRunning(path))

	require.NoError(t, RemovePIDFile(path))
	require.NoError(t, RemovePIDFile(path))
	assert.False(t, IsRunning(path))
}

func TestReadPIDFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	_, err := ReadPIDFile(path)
	assert.Error(t, err)
	assert.False(t, IsRunning(path))
}

func TestIsRunningDeadPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o644))
	assert.False(t, IsRunning(path))
}

func TestRecoverStale(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, RecoverStale(filepath.Join(dir, "none.pid")))
	})

	t.Run("dead process", func(t *testing.T) {
		path := filepath.Join(dir, "dead.pid")
		require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o644))

		require.NoError(t, RecoverStale(path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("live process", func(t *testing.T) {
		path := filepath.Join(dir, "live.pid")
		require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

		err := RecoverStale(path)
		assert.ErrorIs(t, err, ErrAlreadyRunning)
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})
}
