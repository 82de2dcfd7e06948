package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("b.zip", "zip")
	write("b/one.txt", "12345")
	write("b/sub/two.txt", "123")
	write("a.zip", "zip")
	write(".c.zip.part", "partial")
	write("README", "no extension")

	trees, err := Inventory(dir)
	require.NoError(t, err)
	require.Len(t, trees, 2)

	assert.Equal(t, "a.zip", trees[0].Name)
	assert.True(t, trees[0].Missing)

	assert.Equal(t, "b.zip", trees[1].Name)
	assert.False(t, trees[1].Missing)
	assert.Equal(t, int64(2), trees[1].Files)
	assert.Equal(t, int64(8), trees[1].Bytes)
}

func TestInventoryMissingDir(t *testing.T) {
	trees, err := Inventory(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, trees)
}
