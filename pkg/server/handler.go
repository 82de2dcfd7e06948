package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Route names, used in logs and metric labels.
const (
	RouteManifest    = "manifest"
	RouteDownload    = "download"
	RouteConfig      = "config"
	RouteGetFreePlay = "freeplay_get"
	RouteSetFreePlay = "freeplay_set"
	RouteNotFound    = "not_found"
)

// maxFlagBody bounds the POST /freeplay body.
const maxFlagBody = 64 << 10

// Handler serves the distribution endpoints. Route keywords match
// case-insensitively; anything else, including other methods, gets 404.
type Handler struct {
	repo    *Repository
	flags   *FlagStore
	parsers []FlagParser
	metrics *Metrics
}

// NewHandler returns a Handler. metrics may be nil.
func NewHandler(repo *Repository, flags *FlagStore, metrics *Metrics) *Handler {
	return &Handler{
		repo:    repo,
		flags:   flags,
		parsers: DefaultFlagParsers,
		metrics: metrics,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	log := logging.Get("server").With("request", uuid.NewString())

	route := h.dispatch(rec, r, log)

	elapsed := time.Since(start)
	h.metrics.observe(route, r.Method, rec.status, rec.bytes, elapsed)
	log.Debug("request served",
		"method", r.Method,
		"path", r.URL.Path,
		"route", route,
		"status", rec.status,
		"bytes", rec.bytes,
		"elapsed", elapsed,
		"remote", r.RemoteAddr)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, log *logging.Logger) string {
	path := strings.TrimPrefix(r.URL.Path, "/")
	lower := strings.ToLower(path)

	switch r.Method {
	case http.MethodGet:
		switch {
		case lower == "" || lower == "manifest":
			h.serveManifest(w, log)
			return RouteManifest
		case strings.HasPrefix(lower, "download/"):
			name := strings.TrimLeft(path[len("download/"):], "/")
			h.serveDownload(w, r, name, log)
			return RouteDownload
		case lower == "config":
			h.serveConfig(w, log)
			return RouteConfig
		case lower == "freeplay":
			h.serveGetFreePlay(w, log)
			return RouteGetFreePlay
		}
	case http.MethodPost:
		if lower == "freeplay" {
			h.serveSetFreePlay(w, r, log)
			return RouteSetFreePlay
		}
	}

	w.WriteHeader(http.StatusNotFound)
	return RouteNotFound
}

func (h *Handler) serveManifest(w http.ResponseWriter, log *logging.Logger) {
	manifest, err := h.repo.ListPackages()
	if err != nil {
		log.Error("building manifest failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.metrics.manifestServed(manifest.Len())

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, manifest)
}

func (h *Handler) serveDownload(w http.ResponseWriter, r *http.Request, name string, log *logging.Logger) {
	f, info, err := h.repo.OpenPackage(name)
	switch {
	case errors.Is(err, ErrInvalidName):
		log.Warn("rejected package name", "name", name)
		w.WriteHeader(http.StatusBadRequest)
		return
	case errors.Is(err, ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		log.Error("opening package failed", "name", name, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	base := info.Name()
	w.Header().Set("Content-Type", packageContentType(base))
	w.Header().Set("Content-Disposition", `attachment; filename="`+url.PathEscape(base)+`"`)

	log.Info("serving package", "package", base, "size", types.FormatSize(info.Size()))
	http.ServeContent(w, r, base, info.ModTime(), f)
}

func packageContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".zip" {
		return "application/zip"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *Handler) serveConfig(w http.ResponseWriter, log *logging.Logger) {
	data, err := h.repo.ConfigBlob()
	if errors.Is(err, ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("reading config blob failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) serveGetFreePlay(w http.ResponseWriter, log *logging.Logger) {
	value, exists, err := h.flags.Get()
	if err != nil {
		log.Error("reading free play flag failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(types.FreePlaySetHeader, strconv.FormatBool(exists))
	writeJSON(w, http.StatusOK, types.FreePlay{FreePlay: value})
}

func (h *Handler) serveSetFreePlay(w http.ResponseWriter, r *http.Request, log *logging.Logger) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFlagBody))
	if err != nil {
		log.Warn("reading request body failed", "error", err)
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "unreadable request body"})
		return
	}

	value, ok := ParseFreePlay(h.parsers, body, r.URL.Query())
	if !ok {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "freePlay must be true or false"})
		return
	}

	if err := h.flags.Set(value); err != nil {
		log.Error("persisting free play flag failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "could not persist flag"})
		return
	}
	h.metrics.flagWritten()
	log.Info("free play flag updated", "freePlay", value, "remote", r.RemoteAddr)

	writeJSON(w, http.StatusOK, types.FreePlay{FreePlay: value})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
