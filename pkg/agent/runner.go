package agent

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Supervisor keeps the monitored application running.
type Supervisor interface {
	EnsureRunning(ctx context.Context) error
}

// Passer runs one synchronization pass.
type Passer interface {
	RunPass(ctx context.Context) *types.PassReport
}

// Runner drives the agent: a fast liveness loop and a slower sync loop.
// Each loop waits a full interval after its previous run finishes, so runs
// of the same loop never overlap.
type Runner struct {
	pass            Passer
	supervisor      Supervisor
	clock           clockwork.Clock
	processInterval time.Duration
	syncInterval    time.Duration
}

// NewRunner returns a runner. supervisor may be nil to disable the liveness loop.
func NewRunner(pass Passer, supervisor Supervisor, processInterval, syncInterval time.Duration, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		pass:            pass,
		supervisor:      supervisor,
		clock:           clock,
		processInterval: processInterval,
		syncInterval:    syncInterval,
	}
}

// Run makes sure the application is up, runs one pass immediately, then
// loops until ctx is cancelled. It returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.Get("agent")
	log.Info("agent started", "process_check", r.processInterval, "update_check", r.syncInterval)

	r.checkProcess(ctx)
	r.pass.RunPass(ctx)

	g, ctx := errgroup.WithContext(ctx)
	if r.supervisor != nil {
		g.Go(func() error {
			return r.loop(ctx, r.processInterval, r.checkProcess)
		})
	}
	g.Go(func() error {
		return r.loop(ctx, r.syncInterval, func(ctx context.Context) {
			r.pass.RunPass(ctx)
		})
	})

	err := g.Wait()
	log.Info("agent stopped")
	return err
}

func (r *Runner) checkProcess(ctx context.Context) {
	if r.supervisor == nil {
		return
	}
	if err := r.supervisor.EnsureRunning(ctx); err != nil {
		logging.Get("agent").Warn("process check failed", "error", err)
	}
}

func (r *Runner) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.clock.After(interval):
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx)
		}
	}
}
