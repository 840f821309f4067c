package orchestrate

import (
	"context"
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/builds"
	"github.com/warden-sh/warden/internal/worlds"
)

// Orchestrator runs the stop/update/restart state machine for one server
// build. One orchestrator performs exactly one run; runs for different
// builds are independent and may proceed concurrently since they act on
// disjoint world sets.
type Orchestrator struct {
	build    builds.Build
	registry *worlds.Registry
	reporter builds.ProgressReporter
	message  string
	force    bool
	workers  int
	log      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithForce requests a forced update: worlds that ignore the graceful
// stop are killed.
func WithForce(force bool) Option {
	return func(o *Orchestrator) { o.force = force }
}

// WithMessage sets the console notification sent to each world before it
// is stopped.
func WithMessage(message string) Option {
	return func(o *Orchestrator) { o.message = message }
}

// WithReporter sets the download progress reporter.
func WithReporter(r builds.ProgressReporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithWorkers sets the worker-pool size for the stop and restart phases.
// One worker (the default) preserves snapshot order; more workers stop
// and restart worlds concurrently, with per-world isolation.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// New creates an orchestrator for one update run of build.
func New(build builds.Build, registry *worlds.Registry, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		build:    build,
		registry: registry,
		reporter: noopReporter{},
		workers:  1,
		log:      log.Named("update").With(zap.String("build", build.Name())),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the state machine and returns the run record. Run never
// returns before the restart phase has been attempted for every world
// this run stopped: a stopped world is always an obligation to restart,
// no matter how the stop or download phases went.
func (o *Orchestrator) Run(ctx context.Context) *Record {
	rec := NewRecord(o.build.Name(), o.force)
	o.log.Info("update run starting", zap.String("run_id", rec.RunID), zap.Bool("force", o.force))

	// Snapshot the affected worlds once. Worlds that come online or
	// change builds after this point are not part of the run.
	affected := o.registry.OnlineBoundTo(ctx, o.build.Name())
	for _, w := range affected {
		rec.Affected = append(rec.Affected, w.Name())
	}
	o.log.Info("affected worlds computed", zap.Strings("worlds", rec.Affected))

	rec.setState(StateStopping)
	allStopped := o.stopPhase(ctx, affected, rec)

	// The restart phase runs on every exit path below.
	defer func() {
		rec.setState(StateRestarting)
		o.restartPhase(ctx, affected, rec)
		rec.setState(StateDone)
		o.log.Info("update run finished", zap.String("run_id", rec.RunID), zap.Bool("failed", rec.Failed()))
	}()

	if !allStopped {
		rec.setState(StateStopFailed)
		o.log.Error("a world refused to stop, skipping the update",
			zap.String("blocked_by", rec.BlockedBy))
		return rec
	}

	rec.setState(StateDownloading)
	rec.UpdateAttempted = true
	if err := o.build.Update(ctx, o.reporter); err != nil {
		rec.UpdateErr = err
		rec.setState(StateDownloadFailed)
		o.log.Error("build update failed", zap.Error(err))
		return rec
	}

	o.log.Info("build update complete")
	return rec
}

// stopPhase notifies and stops the affected worlds and reports whether
// every one stopped cleanly. Sequential mode aborts on the first failure,
// leaving later worlds untouched. Pool mode attempts every stop; the
// first failed world in snapshot order becomes BlockedBy, and every
// world that did stop joins the restart obligation either way.
func (o *Orchestrator) stopPhase(ctx context.Context, affected []worlds.World, rec *Record) bool {
	stop := func(ctx context.Context, w worlds.World) Outcome {
		if o.message != "" {
			// Best effort: a world that cannot take the notice can still
			// be stopped.
			if err := w.SendCommand(ctx, "say "+o.message); err != nil {
				o.log.Debug("stop notice not delivered",
					zap.String("world", w.Name()), zap.Error(err))
			}
		}

		o.log.Info("stopping world", zap.String("world", w.Name()))
		return Outcome{World: w.Name(), Err: w.Stop(ctx, o.force)}
	}

	if o.workers <= 1 {
		for _, w := range affected {
			out := stop(ctx, w)
			rec.StopResults.Set(out.World, out)
			if !out.OK() {
				rec.BlockedBy = out.World
				return false
			}
		}
		return true
	}

	o.forEach(ctx, affected, func(ctx context.Context, w worlds.World) {
		rec.StopResults.Set(w.Name(), stop(ctx, w))
	})

	for _, name := range rec.Affected {
		if out, ok := rec.StopResults.Get(name); ok && !out.OK() {
			rec.BlockedBy = name
			return false
		}
	}
	return true
}

// restartPhase starts every world this run stopped. Already-online worlds
// count as restarted; failures are recorded per world and never abort the
// loop.
func (o *Orchestrator) restartPhase(ctx context.Context, affected []worlds.World, rec *Record) {
	stopped := make(map[string]bool)
	for _, name := range rec.Stopped() {
		stopped[name] = true
	}

	restart := func(ctx context.Context, w worlds.World) {
		o.log.Info("restarting world", zap.String("world", w.Name()))

		err := w.Start(ctx)
		if errors.Is(err, worlds.ErrWorldOnline) {
			err = nil
		}
		if err != nil {
			o.log.Error("world could not be restarted",
				zap.String("world", w.Name()), zap.Error(err))
		}
		rec.RestartResults.Set(w.Name(), Outcome{World: w.Name(), Err: err})
	}

	if o.workers <= 1 {
		for _, w := range affected {
			if stopped[w.Name()] {
				restart(ctx, w)
			}
		}
		return
	}

	var obliged []worlds.World
	for _, w := range affected {
		if stopped[w.Name()] {
			obliged = append(obliged, w)
		}
	}
	o.forEach(ctx, obliged, restart)
}

// forEach runs fn for every world on an ants pool. Each world gets its
// own derived context so one world's cancellation never reaches its
// siblings.
func (o *Orchestrator) forEach(ctx context.Context, targets []worlds.World, fn func(context.Context, worlds.World)) {
	pool, err := ants.NewPool(o.workers)
	if err != nil {
		// Pool construction only fails on invalid sizes; fall back to the
		// sequential path rather than dropping the phase.
		for _, w := range targets {
			fn(ctx, w)
		}
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, w := range targets {
		w := w
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			wctx, cancel := context.WithCancel(ctx)
			defer cancel()
			fn(wctx, w)
		}
		if err := pool.Submit(submit); err != nil {
			wg.Done()
			fn(ctx, w)
		}
	}
	wg.Wait()
}

// noopReporter swallows progress when the caller does not care.
type noopReporter struct{}

func (noopReporter) Begin(string, int64) {}
func (noopReporter) Advance(int64) {}
func (noopReporter) Done(error) {}
