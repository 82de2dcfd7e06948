// Package agent implements the arcade-side synchronization pass: deciding
// which packages are stale, applying them, and reconciling the free play mode.
package agent

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Plan reasons.
const (
	ReasonMissing  = "missing"
	ReasonChanged  = "hash mismatch"
	ReasonCurrent  = "up to date"
	ReasonUnread   = "local file unreadable"
	ReasonBadEntry = "invalid package name"
)

// Planner compares manifest entries with the archives already on disk.
type Planner struct {
	fs  afero.Fs
	dir string
}

// NewPlanner returns a planner for packages stored in dir.
func NewPlanner(fs afero.Fs, dir string) *Planner {
	return &Planner{fs: fs, dir: dir}
}

// LocalPath returns where the archive for entry is kept.
func (p *Planner) LocalPath(entry types.PackageEntry) string {
	return filepath.Join(p.dir, entry.BaseName())
}

// NeedsUpdate reports whether entry must be downloaded. Only content identity
// counts: a local file whose hash matches the manifest, in any letter case,
// is current.
func (p *Planner) NeedsUpdate(entry types.PackageEntry) bool {
	return p.Check(entry).NeedsUpdate
}

// Check returns the decision for entry together with its reason.
func (p *Planner) Check(entry types.PackageEntry) types.PlanItem {
	item := types.PlanItem{Entry: entry}

	if err := validEntryName(entry); err != nil {
		item.Reason = ReasonBadEntry
		return item
	}

	sum, err := digest.File(p.fs, p.LocalPath(entry))
	switch {
	case os.IsNotExist(err):
		item.NeedsUpdate = true
		item.Reason = ReasonMissing
	case err != nil:
		item.NeedsUpdate = true
		item.Reason = ReasonUnread
	case !digest.Equal(sum, entry.Hash):
		item.NeedsUpdate = true
		item.Reason = ReasonChanged
	default:
		item.Reason = ReasonCurrent
	}
	return item
}

// Plan checks every entry of m in manifest order.
func (p *Planner) Plan(m *types.Manifest) []types.PlanItem {
	items := make([]types.PlanItem, 0, m.Len())
	if m == nil {
		return items
	}
	for _, entry := range m.Files {
		items = append(items, p.Check(entry))
	}
	return items
}

func validEntryName(entry types.PackageEntry) error {
	switch base := entry.BaseName(); base {
	case "", ".", "..":
		return fmt.Errorf("%w: %q", ErrInvalidEntry, entry.Name)
	}
	return nil
}
