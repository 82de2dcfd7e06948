package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

type handlerFixture struct {
	fs      afero.Fs
	handler *Handler
	metrics *Metrics
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	fs, repo := newTestRepo(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	flags := NewFlagStore(fs, "/srv/Config/freeplay.json")
	return &handlerFixture{
		fs:      fs,
		handler: NewHandler(repo, flags, metrics),
		metrics: metrics,
	}
}

func (f *handlerFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestManifestEmpty(t *testing.T) {
	f := newHandlerFixture(t)

	for _, path := range []string{"/", "/manifest", "/MANIFEST"} {
		rec := f.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	}
}

func TestManifestListsPackages(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/srv/Updates/a.zip", []byte("hello"), 0o644))

	rec := f.do(http.MethodGet, "/manifest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[{"name":"a.zip","hash":"`+digest.Bytes([]byte("hello"))+`"}]}`, rec.Body.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Packages))
}

func TestDownload(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/srv/Updates/my pack.zip", []byte("zipbytes"), 0o644))

	rec := f.do(http.MethodGet, "/Download/my%20pack.zip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zipbytes", rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="my%20pack.zip"`, rec.Header().Get("Content-Disposition"))
}

func TestDownloadRejectsBadNames(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/srv/Config/AquaMai.toml", []byte("secret"), 0o644))

	tests := []struct {
		path string
		want int
	}{
		{path: "/download/", want: http.StatusBadRequest},
		{path: "/download/..%2FConfig%2FAquaMai.toml", want: http.StatusBadRequest},
		{path: "/download/missing.zip", want: http.StatusNotFound},
		{path: "/download/sub/missing.zip", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := f.do(http.MethodGet, tt.path, "")
		assert.Equal(t, tt.want, rec.Code, tt.path)
		assert.NotContains(t, rec.Body.String(), "secret")
	}
}

func TestConfigEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/config", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, afero.WriteFile(f.fs, "/srv/Config/AquaMai.toml", []byte("# IsFreePlay = false\n"), 0o644))
	rec = f.do(http.MethodGet, "/CONFIG", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# IsFreePlay = false\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestFreePlayRoundTrip(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/freeplay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"freePlay":false}`, rec.Body.String())
	assert.Equal(t, "false", rec.Header().Get(types.FreePlaySetHeader))

	rec = f.do(http.MethodPost, "/freeplay", `{"freePlay":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"freePlay":true}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/FreePlay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"freePlay":true}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(types.FreePlaySetHeader))

	rec = f.do(http.MethodPost, "/freeplay?freePlay=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/freeplay", "")
	assert.JSONEq(t, `{"freePlay":false}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(types.FreePlaySetHeader))

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.FlagWrites))
}

func TestFreePlayRejectsGarbage(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/freeplay", "sometimes")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = f.do(http.MethodGet, "/freeplay", "")
	assert.Equal(t, "false", rec.Header().Get(types.FreePlaySetHeader))
}

func TestUnknownRoutes(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/manifest"},
		{http.MethodPut, "/freeplay"},
		{http.MethodDelete, "/config"},
		{http.MethodHead, "/manifest"},
	}
	for _, tt := range tests {
		rec := f.do(tt.method, tt.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, tt.method+" "+tt.path)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Requests.WithLabelValues(RouteNotFound, http.MethodGet, "404")))
}

func TestNilMetrics(t *testing.T) {
	fs, repo := newTestRepo(t)
	h := NewHandler(repo, NewFlagStore(fs, "/flag.json"), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
