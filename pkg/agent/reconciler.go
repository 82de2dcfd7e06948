package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Mode value sources.
const (
	SourceRemote   = "remote"
	SourceOverride = "override"
)

// ModeSource supplies the remote free play flag and the shared config blob.
type ModeSource interface {
	FreePlay(ctx context.Context) (value bool, present bool, err error)
	ConfigBlob(ctx context.Context) ([]byte, error)
}

// Terminator stops the monitored application and its child processes.
type Terminator interface {
	Terminate(ctx context.Context) (int, error)
}

// Reconciler brings the local config file and the running application in
// line with the resolved free play value.
type Reconciler struct {
	source    ModeSource
	fs        afero.Fs
	localPath string
	override  *bool
	marker    Marker
	term      Terminator
}

// NewReconciler returns a reconciler that rewrites the config file at
// localPath. override is used when the server has no flag; nil disables it.
func NewReconciler(source ModeSource, fs afero.Fs, localPath string, override *bool, marker Marker, term Terminator) *Reconciler {
	return &Reconciler{
		source:    source,
		fs:        fs,
		localPath: localPath,
		override:  override,
		marker:    marker,
		term:      term,
	}
}

// Resolve returns the free play value to apply. ok is false when neither
// the server nor the override supplies one.
func (r *Reconciler) Resolve(ctx context.Context) (value bool, source string, ok bool) {
	log := logging.Get("mode")

	v, present, err := r.source.FreePlay(ctx)
	switch {
	case err != nil:
		log.Warn("fetching remote free play flag failed", "error", err)
	case present:
		return v, SourceRemote, true
	}

	if r.override != nil {
		return *r.override, SourceOverride, true
	}
	return false, "", false
}

// Reconcile runs one reconciliation. It never returns an error; failures are
// reported in the result and retried on the next pass.
func (r *Reconciler) Reconcile(ctx context.Context) types.ModeResult {
	log := logging.Get("mode")

	value, source, ok := r.Resolve(ctx)
	if !ok {
		log.Debug("no free play value from server or override, skipping")
		return types.ModeResult{Outcome: types.ModeSkipped}
	}

	result := types.ModeResult{Value: &value, Source: source}
	fail := func(err error) types.ModeResult {
		log.Error("free play reconciliation failed", "freePlay", value, "error", err)
		result.Outcome = types.ModeFailed
		result.Error = err.Error()
		return result
	}

	blob, err := r.configBlob(ctx)
	if errors.Is(err, ErrNoConfigBlob) {
		log.Warn("no config file from server or disk, skipping", "path", r.localPath)
		result.Outcome = types.ModeSkipped
		result.Error = err.Error()
		return result
	}
	if err != nil {
		return fail(err)
	}

	rewritten, found := RewriteDirective(blob, value)
	if !found {
		log.Warn("config file has no "+DirectiveKey+" directive, leaving it unchanged", "path", r.localPath)
	}
	if err := checkTOML(blob, rewritten); err != nil {
		return fail(err)
	}
	if err := writeFileAtomic(r.fs, r.localPath, rewritten); err != nil {
		return fail(fmt.Errorf("writing %s: %w", r.localPath, err))
	}

	last, err := r.marker.Load()
	if err != nil {
		log.Warn("marker unreadable, treating as unset", "error", err)
		last = nil
	}
	if last != nil && *last == value {
		result.Outcome = types.ModeUnchanged
		return result
	}

	killed, err := r.term.Terminate(ctx)
	if err != nil {
		return fail(fmt.Errorf("terminating application: %w", err))
	}
	result.Disrupted = true
	log.Info("free play changed, application stopped", "freePlay", value, "source", source, "killed", killed)

	if err := r.marker.Store(value); err != nil {
		return fail(err)
	}
	result.Outcome = types.ModeApplied
	return result
}

// configBlob prefers the server copy and falls back to the local file. An
// empty server copy counts as unavailable, so it never replaces local content.
func (r *Reconciler) configBlob(ctx context.Context) ([]byte, error) {
	log := logging.Get("mode")

	blob, err := r.source.ConfigBlob(ctx)
	switch {
	case err != nil:
		log.Warn("fetching config from server failed, using local copy", "error", err)
	case len(bytes.TrimSpace(blob)) == 0:
		log.Warn("server config is empty, using local copy")
	default:
		return blob, nil
	}

	blob, err = afero.ReadFile(r.fs, r.localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfigBlob
		}
		return nil, fmt.Errorf("reading %s: %w", r.localPath, err)
	}
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, ErrNoConfigBlob
	}
	return blob, nil
}

// checkTOML rejects a rewrite that breaks a config file that parsed before.
// Blobs that were not valid TOML to begin with pass through.
func checkTOML(before, after []byte) error {
	var parsedBefore, parsedAfter map[string]any
	if toml.Unmarshal(before, &parsedBefore) != nil {
		return nil
	}
	if err := toml.Unmarshal(after, &parsedAfter); err != nil {
		return fmt.Errorf("rewritten config is not valid TOML: %w", err)
	}
	return nil
}
