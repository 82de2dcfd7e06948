package server

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

// Watcher logs package changes in the updates folder. Manifests are always
// built from disk, so the watcher never caches anything.
type Watcher struct {
	repo    *Repository
	fsw     *fsnotify.Watcher
	metrics *Metrics
}

// NewWatcher watches the repository's updates folder, which must exist.
func NewWatcher(repo *Repository, metrics *Metrics) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(repo.UpdatesDir()); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{repo: repo, fsw: fsw, metrics: metrics}, nil
}

// Run consumes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	log := logging.Get("watcher")
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !w.repo.IsPackage(name) {
				continue
			}
			op := eventOp(event.Op)
			if op == "" {
				continue
			}
			w.metrics.packageChanged(op)
			log.Info("package changed", "package", name, "op", op)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func eventOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	}
	return ""
}
