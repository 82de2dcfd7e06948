package server

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
)

func newTestRepo(t *testing.T) (afero.Fs, *Repository) {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo := NewRepository(fs, "/srv/Updates", ".zip", "/srv/Config/AquaMai.toml")
	_, err := repo.EnsureUpdatesDir()
	require.NoError(t, err)
	return fs, repo
}

func TestEnsureUpdatesDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewRepository(fs, "/srv/Updates", ".zip", "")

	created, err := repo.EnsureUpdatesDir()
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsureUpdatesDir()
	require.NoError(t, err)
	assert.False(t, created)
}

func TestListPackages(t *testing.T) {
	fs, repo := newTestRepo(t)
	require.NoError(t, afero.WriteFile(fs, "/srv/Updates/a.zip", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/srv/Updates/B.ZIP", []byte("world"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/srv/Updates/notes.txt", []byte("skip"), 0o644))
	require.NoError(t, fs.MkdirAll("/srv/Updates/nested.zip", 0o755))

	m, err := repo.ListPackages()
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	byName := map[string]string{}
	for _, e := range m.Files {
		byName[e.Name] = e.Hash
	}
	assert.Equal(t, digest.Bytes([]byte("hello")), byName["a.zip"])
	assert.Equal(t, digest.Bytes([]byte("world")), byName["B.ZIP"])
}

func TestListPackagesMissingFolder(t *testing.T) {
	repo := NewRepository(afero.NewMemMapFs(), "/nowhere", ".zip", "")

	m, err := repo.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.NotNil(t, m.Files)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a.zip", want: "a.zip"},
		{in: "sub/a.zip", want: "a.zip"},
		{in: `sub\a.zip`, want: "a.zip"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "../a.zip", wantErr: true},
		{in: "a..zip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenPackage(t *testing.T) {
	fs, repo := newTestRepo(t)
	require.NoError(t, afero.WriteFile(fs, "/srv/Updates/a.zip", []byte("payload"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/srv/Updates/other.txt", []byte("x"), 0o644))

	f, info, err := repo.OpenPackage("a.zip")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(7), info.Size())
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, _, err = repo.OpenPackage("missing.zip")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = repo.OpenPackage("other.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = repo.OpenPackage("../Config/AquaMai.toml")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestConfigBlob(t *testing.T) {
	fs, repo := newTestRepo(t)

	_, err := repo.ConfigBlob()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/srv/Config/AquaMai.toml"), []byte("IsFreePlay = true\n"), 0o644))
	data, err := repo.ConfigBlob()
	require.NoError(t, err)
	assert.Equal(t, "IsFreePlay = true\n", string(data))
}
