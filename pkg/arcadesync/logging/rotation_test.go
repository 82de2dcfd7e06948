package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

func countLogs(t *testing.T, dir, prefix string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "size_rotate.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 512, MaxBackups: 10})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	assert.GreaterOrEqual(t, countLogs(t, dir, "size_rotate"), 2)
	assert.NotEmpty(t, writer.Backups())
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "backup_limit.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 64, MaxBackups: 2})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := writer.Write([]byte(strings.Repeat("y", 30) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	assert.LessOrEqual(t, len(writer.Backups()), 2)
	assert.Equal(t, len(writer.Backups())+1, countLogs(t, dir, "backup_limit"))
}

func TestRotationMaxAge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "aged.log")

	stale := filepath.Join(dir, "aged.2020-01-01-000000.log")
	require.NoError(t, os.WriteFile(stale, []byte("old\n"), 0o644))
	old := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "aged.2020-01-02-000000.log")
	require.NoError(t, os.WriteFile(fresh, []byte("new\n"), 0o644))

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxAge: 7})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale backup should be pruned")
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "append.log")
	require.NoError(t, os.WriteFile(logPath, []byte("first\n"), 0o644))

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{})
	require.NoError(t, err)
	_, err = writer.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	writer, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close())

	_, err = writer.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriter_CreatesDirectory(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "deeper", "dir.log")
	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = os.Stat(logPath)
	assert.NoError(t, err)
}
