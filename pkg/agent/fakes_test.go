package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

var errOffline = errors.New("server offline")

// fakeSource is an in-memory server.
type fakeSource struct {
	mu          sync.Mutex
	packages    map[string][]byte
	order       []string
	manifestErr error
	downloadErr map[string]error
	downloads   []string

	config    []byte
	configErr error

	freePlay        bool
	freePlayPresent bool
	freePlayErr     error
}

func newFakeSource() *fakeSource {
	return &fakeSource{packages: map[string][]byte{}, downloadErr: map[string]error{}}
}

func (s *fakeSource) put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[name]; !ok {
		s.order = append(s.order, name)
	}
	s.packages[name] = data
}

func (s *fakeSource) setFreePlay(v bool) {
	s.freePlay = v
	s.freePlayPresent = true
}

func (s *fakeSource) Manifest(context.Context) (*types.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifestErr != nil {
		return nil, s.manifestErr
	}
	m := types.NewManifest()
	for _, name := range s.order {
		m.Files = append(m.Files, types.PackageEntry{Name: name, Hash: digest.Bytes(s.packages[name])})
	}
	return m, nil
}

func (s *fakeSource) Download(_ context.Context, name string, w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads = append(s.downloads, name)
	if err := s.downloadErr[name]; err != nil {
		return 0, err
	}
	data, ok := s.packages[name]
	if !ok {
		return 0, errors.New("not found")
	}
	return io.Copy(w, bytes.NewReader(data))
}

func (s *fakeSource) ConfigBlob(context.Context) ([]byte, error) {
	if s.configErr != nil {
		return nil, s.configErr
	}
	if s.config == nil {
		return nil, errors.New("not found")
	}
	return append([]byte(nil), s.config...), nil
}

func (s *fakeSource) FreePlay(context.Context) (bool, bool, error) {
	return s.freePlay, s.freePlayPresent, s.freePlayErr
}

func (s *fakeSource) downloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.downloads)
}

// memMarker is an in-memory Marker.
type memMarker struct {
	value *bool
}

func (m *memMarker) Load() (*bool, error) { return m.value, nil }

func (m *memMarker) Store(v bool) error {
	m.value = &v
	return nil
}

// fakeTerminator counts terminations.
type fakeTerminator struct {
	calls int
	err   error
}

func (f *fakeTerminator) Terminate(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.calls++
	return 1, nil
}

// makeZip builds an archive from name -> content. Names ending in "/" are directories.
func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
