package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

func entryFor(name string, data []byte) types.PackageEntry {
	return types.PackageEntry{Name: name, Hash: digest.Bytes(data)}
}

func TestApplyExtractsAndInstalls(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := newFakeSource()
	data := makeZip(t, map[string]string{
		"readme.txt":      "v1",
		"data/":           "",
		"data/table.json": "{}",
	})
	src.put("mod.zip", data)

	a := NewApplier(fs, "/game/Package", src)
	n, err := a.Apply(context.Background(), entryFor("mod.zip", data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := afero.ReadFile(fs, "/game/Package/mod/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	got, err = afero.ReadFile(fs, "/game/Package/mod/data/table.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	installed, err := digest.File(fs, "/game/Package/mod.zip")
	require.NoError(t, err)
	assert.Equal(t, digest.Bytes(data), installed)

	_, err = fs.Stat("/game/Package/.mod.zip.part")
	assert.Error(t, err)
}

func TestApplyIsAdditive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/game/Package/mod/local-only.cfg", []byte("keep me"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/game/Package/mod/readme.txt", []byte("old"), 0o644))

	src := newFakeSource()
	data := makeZip(t, map[string]string{"readme.txt": "new"})
	src.put("mod.zip", data)

	_, err := NewApplier(fs, "/game/Package", src).Apply(context.Background(), entryFor("mod.zip", data))
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, "/game/Package/mod/local-only.cfg")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))

	got, err = afero.ReadFile(fs, "/game/Package/mod/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestApplyRejectsZipSlip(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := newFakeSource()
	data := makeZip(t, map[string]string{
		"ok.txt":           "fine",
		"../../escape.txt": "nope",
	})
	src.put("evil.zip", data)

	_, err := NewApplier(fs, "/game/Package", src).Apply(context.Background(), entryFor("evil.zip", data))
	require.ErrorIs(t, err, ErrUnsafeArchive)

	_, statErr := fs.Stat("/escape.txt")
	assert.Error(t, statErr)
	_, statErr = fs.Stat("/game/Package/evil/ok.txt")
	assert.Error(t, statErr)
	_, statErr = fs.Stat("/game/Package/evil.zip")
	assert.Error(t, statErr)
}

func TestApplyFailureKeepsPreviousArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/game/Package/mod.zip", []byte("previous"), 0o644))

	src := newFakeSource()
	src.put("mod.zip", []byte("this is not a zip"))

	_, err := NewApplier(fs, "/game/Package", src).Apply(context.Background(), entryFor("mod.zip", []byte("this is not a zip")))
	require.Error(t, err)

	got, err := afero.ReadFile(fs, "/game/Package/mod.zip")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
}

func TestApplyDownloadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := newFakeSource()
	data := makeZip(t, map[string]string{"a.txt": "a"})
	src.put("mod.zip", data)
	src.downloadErr["mod.zip"] = errOffline

	a := NewApplier(fs, "/game/Package", src)
	_, err := a.Apply(context.Background(), entryFor("mod.zip", data))
	assert.True(t, errors.Is(err, errOffline))

	delete(src.downloadErr, "mod.zip")
	_, err = a.Apply(context.Background(), types.PackageEntry{Name: "mod.zip", Hash: digest.Bytes([]byte("different"))})
	assert.ErrorIs(t, err, ErrHashMismatch)

	_, err = a.Apply(context.Background(), types.PackageEntry{Name: ".."})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestEntryTarget(t *testing.T) {
	dest := "/game/Package/mod"
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "a.txt", want: "/game/Package/mod/a.txt"},
		{name: "dir/b.txt", want: "/game/Package/mod/dir/b.txt"},
		{name: `dir\c.txt`, want: "/game/Package/mod/dir/c.txt"},
		{name: "./", want: "/game/Package/mod"},
		{name: "../x.txt", wantErr: true},
		{name: "dir/../../x.txt", wantErr: true},
		{name: "/etc/passwd", wantErr: true},
		{name: `\windows\x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entryTarget(dest, tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeArchive)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
