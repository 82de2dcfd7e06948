// Package types provides the wire and report types shared by the arcadesync
// agent, the distribution server and the CLI.
package types

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FreePlaySetHeader carries the "exists" bit of the free play flag on
// GET /freeplay responses. A value of "false" means the flag was never set.
const FreePlaySetHeader = "X-FreePlay-Set"

// PackageEntry describes one distributable package in a manifest.
type PackageEntry struct {
	// Name is the package file name as it appears in the updates folder.
	Name string `json:"name"`

	// Hash is the lowercase hex SHA-256 of the package bytes at the time
	// the manifest was produced.
	Hash string `json:"hash"`
}

// BaseName returns the final path element of the entry name. Both forward
// and back slashes are treated as separators so that a manifest produced on
// any platform resolves to a plain file name.
func (e PackageEntry) BaseName() string {
	name := e.Name
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// DirName returns the extraction directory name for the entry: the base
// name without its final extension.
func (e PackageEntry) DirName() string {
	base := e.BaseName()
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// Manifest is the ordered list of packages offered by the server.
type Manifest struct {
	Files []PackageEntry `json:"files"`
}

// NewManifest returns an empty manifest whose Files slice encodes as [] rather than null.
func NewManifest() *Manifest {
	return &Manifest{Files: []PackageEntry{}}
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Files)
}

// FreePlay is the JSON body of the /freeplay endpoint.
type FreePlay struct {
	FreePlay bool `json:"freePlay"`
}

// ErrorResponse is the JSON body returned with client errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModeOutcome summarizes what mode reconciliation did during a pass.
type ModeOutcome string

// Mode outcomes.
const (
	ModeSkipped   ModeOutcome = "skipped"
	ModeUnchanged ModeOutcome = "unchanged"
	ModeApplied   ModeOutcome = "applied"
	ModeFailed    ModeOutcome = "failed"
)

// ModeResult records the result of one mode reconciliation.
type ModeResult struct {
	Outcome ModeOutcome `json:"outcome"`

	// Value is the resolved free play value. Nil when reconciliation was skipped
	// before a value could be resolved.
	Value *bool `json:"value,omitempty"`

	// Source is "remote" or "override".
	Source string `json:"source,omitempty"`

	// Disrupted reports whether the monitored application was terminated.
	Disrupted bool `json:"disrupted"`

	Error string `json:"error,omitempty"`
}

// PackageFailure pairs a package name with the reason it was skipped.
type PackageFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// PassReport is the summary of one synchronization pass.
type PassReport struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Mode ModeResult `json:"mode"`

	// ManifestError is set when the manifest could not be fetched and the
	// package phase was skipped.
	ManifestError string `json:"manifest_error,omitempty"`

	Checked    int              `json:"checked"`
	Downloaded []string         `json:"downloaded,omitempty"`
	Bytes      int64            `json:"bytes"`
	Failed     []PackageFailure `json:"failed,omitempty"`
}

// Elapsed returns the pass duration.
func (r *PassReport) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

// OK reports whether the pass completed without any failure.
func (r *PassReport) OK() bool {
	return r.ManifestError == "" && len(r.Failed) == 0 && r.Mode.Outcome != ModeFailed
}

// PlanItem is a single SyncPlanner decision, used by the plan command.
type PlanItem struct {
	Entry       PackageEntry `json:"entry"`
	NeedsUpdate bool         `json:"needs_update"`
	Reason      string       `json:"reason"`
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1536*1024) returns "1.5 MiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
