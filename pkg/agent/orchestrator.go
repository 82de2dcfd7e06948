package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Source is everything a sync pass needs from the server.
// *client.Client satisfies it.
type Source interface {
	ModeSource
	Downloader
	Manifest(ctx context.Context) (*types.Manifest, error)
}

// Recorder stores finished pass reports.
type Recorder interface {
	Record(r *types.PassReport) error
}

// Orchestrator runs sync passes: mode reconciliation first, then packages.
type Orchestrator struct {
	source     Source
	planner    *Planner
	applier    *Applier
	reconciler *Reconciler
	recorder   Recorder
	clock      clockwork.Clock
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRecorder records every finished pass.
func WithRecorder(r Recorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithClock sets the clock used for pass timestamps.
func WithClock(c clockwork.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// NewOrchestrator wires a pass from its parts. A nil reconciler skips mode
// reconciliation.
func NewOrchestrator(source Source, planner *Planner, applier *Applier, reconciler *Reconciler, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		planner:    planner,
		applier:    applier,
		reconciler: reconciler,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Planner returns the pass planner.
func (o *Orchestrator) Planner() *Planner {
	return o.planner
}

// Plan fetches the manifest and reports what a pass would download.
func (o *Orchestrator) Plan(ctx context.Context) ([]types.PlanItem, error) {
	m, err := o.source.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return o.planner.Plan(m), nil
}

// RunPass performs one synchronization pass. Failures are logged and
// recorded in the report; nothing is retried within the pass.
func (o *Orchestrator) RunPass(ctx context.Context) *types.PassReport {
	report := &types.PassReport{
		ID:      uuid.NewString(),
		Started: o.clock.Now(),
	}
	log := logging.Get("sync").With("pass", report.ID[:8])
	log.Debug("sync pass started")

	report.Mode = types.ModeResult{Outcome: types.ModeSkipped}
	if o.reconciler != nil {
		report.Mode = o.reconciler.Reconcile(ctx)
	}
	o.syncPackages(ctx, report, log)

	report.Finished = o.clock.Now()
	o.finish(report, log)
	return report
}

func (o *Orchestrator) syncPackages(ctx context.Context, report *types.PassReport, log *logging.Logger) {
	m, err := o.source.Manifest(ctx)
	if err != nil {
		log.Warn("fetching manifest failed", "error", err)
		report.ManifestError = err.Error()
		return
	}
	if m.Len() == 0 {
		log.Debug("manifest is empty")
		return
	}

	for _, entry := range m.Files {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, types.PackageFailure{Name: entry.Name, Error: ctx.Err().Error()})
			continue
		}

		report.Checked++
		item := o.planner.Check(entry)
		if item.Reason == ReasonBadEntry {
			log.Warn("skipping manifest entry", "package", entry.Name, "reason", item.Reason)
			report.Failed = append(report.Failed, types.PackageFailure{Name: entry.Name, Error: item.Reason})
			continue
		}
		if !item.NeedsUpdate {
			continue
		}

		start := o.clock.Now()
		n, err := o.applier.Apply(ctx, entry)
		if err != nil {
			log.Error("applying package failed", "package", entry.Name, "reason", item.Reason, "error", err)
			report.Failed = append(report.Failed, types.PackageFailure{Name: entry.Name, Error: err.Error()})
			continue
		}

		report.Downloaded = append(report.Downloaded, entry.Name)
		report.Bytes += n
		log.Info("package updated",
			"package", entry.Name,
			"reason", item.Reason,
			"size", types.FormatSize(n),
			"elapsed", o.clock.Since(start).Round(time.Millisecond))
	}
}

func (o *Orchestrator) finish(report *types.PassReport, log *logging.Logger) {
	if o.recorder != nil {
		if err := o.recorder.Record(report); err != nil {
			log.Warn("recording pass failed", "error", err)
		}
	}

	args := []interface{}{
		"mode", report.Mode.Outcome,
		"checked", report.Checked,
		"downloaded", len(report.Downloaded),
		"failed", len(report.Failed),
		"elapsed", report.Elapsed().Round(time.Millisecond),
	}
	if report.OK() {
		if len(report.Downloaded) > 0 || report.Mode.Outcome == types.ModeApplied {
			log.Info("sync pass finished", args...)
		} else {
			log.Debug("sync pass finished", args...)
		}
		return
	}
	log.Warn("sync pass finished with errors", args...)
}
