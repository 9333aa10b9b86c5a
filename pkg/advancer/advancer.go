// Package advancer periodically re-invokes play advancement. Every sweep
// launches workstreams whose assigned play has not started and re-enters
// workstreams with an active play. Re-entry is idempotent, so a sweep that
// finds nothing to do writes nothing.
package advancer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/dealgrid/playrun/pkg/lock"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/services"
)

const DefaultSchedule = "@every 1m"

type Advancer struct {
	persistence persistence.Persistence
	workstreams *services.Workstream
	locker      *lock.WorkstreamLocker
	schedule    string
	cron        *cron.Cron
	logger      *slog.Logger
}

// New builds a sweep runner. The locker may be nil for single-process
// deployments; with a locker, workstreams held by another invoker are
// skipped and picked up on a later sweep.
func New(p persistence.Persistence, workstreams *services.Workstream, locker *lock.WorkstreamLocker, schedule string, logger *slog.Logger) (*Advancer, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return &Advancer{
		persistence: p,
		workstreams: workstreams,
		locker:      locker,
		schedule:    schedule,
		logger:      logger.With("module", "advancer"),
	}, nil
}

func (a *Advancer) Start(ctx context.Context) error {
	a.logger.Info("Starting advancer", "schedule", a.schedule)

	a.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := a.cron.AddFunc(a.schedule, func() {
		if err := a.Sweep(ctx); err != nil {
			a.logger.Error("Sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}

	a.cron.Start()

	return nil
}

func (a *Advancer) Stop(ctx context.Context) error {
	a.logger.Info("Stopping advancer")

	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Sweep runs one pass over all workstreams. Per-workstream failures are
// logged and do not stop the pass.
func (a *Advancer) Sweep(ctx context.Context) error {
	workstreams, err := a.persistence.WorkstreamRepository().Workstreams(ctx)
	if err != nil {
		return fmt.Errorf("listing workstreams: %w", err)
	}

	for _, workstream := range workstreams {
		if workstream.PlayID == "" {
			continue
		}

		due, err := a.due(ctx, workstream)
		if err != nil {
			a.logger.Error("Skipping workstream", "workstream_id", workstream.ID, "error", err)

			continue
		}

		if !due {
			continue
		}

		if err := a.advance(ctx, workstream); err != nil {
			a.logger.Error("Advance failed", "workstream_id", workstream.ID, "error", err)
		}
	}

	return nil
}

// due reports whether the workstream's play still has work: never started,
// or active with nodes that may have become dispatchable.
func (a *Advancer) due(ctx context.Context, workstream *models.Workstream) (bool, error) {
	states, err := a.persistence.ExecutionStateRepository().NodeExecutionStates(ctx, workstream.ID, workstream.PlayID)
	if err != nil {
		return false, err
	}

	if len(states) == 0 {
		return true, nil
	}

	return a.workstreams.HasActivePlay(ctx, workstream.ID)
}

func (a *Advancer) advance(ctx context.Context, workstream *models.Workstream) error {
	if a.locker != nil {
		lease, err := a.locker.Acquire(ctx, workstream.ID)
		if err != nil {
			return err
		}

		if lease == nil {
			a.logger.Debug("Workstream locked by another invoker", "workstream_id", workstream.ID)

			return nil
		}

		defer func() {
			if err := lease.Release(ctx); err != nil {
				a.logger.Warn("Releasing workstream lock", "workstream_id", workstream.ID, "error", err)
			}
		}()
	}

	outcome, err := a.workstreams.Advance(ctx, workstream.ID, nil)
	if err != nil {
		return err
	}

	a.logger.Info("Advanced workstream",
		"workstream_id", workstream.ID,
		"play_id", workstream.PlayID,
		"status", outcome.Status)

	return nil
}
