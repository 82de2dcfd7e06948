package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageEntry_Names(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantBase string
		wantDir  string
	}{
		{name: "plain zip", input: "Songs.zip", wantBase: "Songs.zip", wantDir: "Songs"},
		{name: "forward slash path", input: "sub/Songs.zip", wantBase: "Songs.zip", wantDir: "Songs"},
		{name: "back slash path", input: `sub\Songs.zip`, wantBase: "Songs.zip", wantDir: "Songs"},
		{name: "double extension", input: "data.tar.zip", wantBase: "data.tar.zip", wantDir: "data.tar"},
		{name: "no extension", input: "README", wantBase: "README", wantDir: "README"},
		{name: "dot file", input: ".hidden", wantBase: ".hidden", wantDir: ".hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := PackageEntry{Name: tt.input}
			assert.Equal(t, tt.wantBase, e.BaseName())
			assert.Equal(t, tt.wantDir, e.DirName())
		})
	}
}

func TestNewManifest_EncodesEmptyArray(t *testing.T) {
	data, err := json.Marshal(NewManifest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[]}`, string(data))
}

func TestManifest_Len(t *testing.T) {
	var m *Manifest
	assert.Equal(t, 0, m.Len())

	m = &Manifest{Files: []PackageEntry{{Name: "a.zip"}, {Name: "b.zip"}}}
	assert.Equal(t, 2, m.Len())
}

func TestFreePlay_WireName(t *testing.T) {
	data, err := json.Marshal(FreePlay{FreePlay: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"freePlay":true}`, string(data))
}

func TestPassReport_OK(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &PassReport{Started: start, Finished: start.Add(3 * time.Second), Mode: ModeResult{Outcome: ModeUnchanged}}
	assert.True(t, r.OK())
	assert.Equal(t, 3*time.Second, r.Elapsed())

	r.Failed = append(r.Failed, PackageFailure{Name: "a.zip", Error: "boom"})
	assert.False(t, r.OK())

	r = &PassReport{ManifestError: "unreachable"}
	assert.False(t, r.OK())

	r = &PassReport{Mode: ModeResult{Outcome: ModeFailed}}
	assert.False(t, r.OK())
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "negative clamps", bytes: -5, want: "0 B"},
		{name: "bytes", bytes: 500, want: "500 B"},
		{name: "kilobytes", bytes: 1024, want: "1.0 KiB"},
		{name: "mixed size", bytes: 1536 * 1024, want: "1.5 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
