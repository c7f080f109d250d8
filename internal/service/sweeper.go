package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"portfolio-cms/internal/event"
	"portfolio-cms/internal/lock"
	"portfolio-cms/internal/metrics"
	"portfolio-cms/internal/model"
)

// SweepLockKey guards the expiry sweep across every instance sharing a lock backend.
const SweepLockKey = "portfolio-cms:trash-sweep"

type sweepStore interface {
	Create(ctx context.Context, run model.SweepRun) error
	Update(ctx context.Context, run model.SweepRun) error
	SaveItems(ctx context.Context, runID string, items []model.SweepItem) error
	FindByID(ctx context.Context, runID string) (model.SweepRun, error)
	List(ctx context.Context, page int, limit int) ([]model.SweepRun, int, error)
}

// Sweeper purges every trash record past its expiry, on a timer or on demand.
type Sweeper struct {
	trash    *TrashService
	runs     sweepStore
	locker   lock.Locker
	lockTTL  time.Duration
	interval time.Duration
	bus      event.Bus
	audit    *AuditService
	metrics  *metrics.Recorder
	now      func() time.Time
}

func NewSweeper(
	trash *TrashService,
	runs sweepStore,
	locker lock.Locker,
	lockTTL time.Duration,
	interval time.Duration,
	bus event.Bus,
	audit *AuditService,
	recorder *metrics.Recorder,
) *Sweeper {
	return &Sweeper{
		trash:    trash,
		runs:     runs,
		locker:   locker,
		lockTTL:  lockTTL,
		interval: interval,
		bus:      bus,
		audit:    audit,
		metrics:  recorder,
		now:      time.Now,
	}
}

// Sweep purges all records with expires_at <= now. A record that fails is
// logged and recorded on the run; the rest of the batch still runs.
func (s *Sweeper) Sweep(ctx context.Context, trigger string, actor model.AuditActor) (model.CleanupResult, error) {
	lease, err := s.locker.Acquire(ctx, SweepLockKey, s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return model.CleanupResult{}, model.ErrSweepInProgress
	}
	if err != nil {
		return model.CleanupResult{}, err
	}
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			slog.Warn("failed to release sweep lock", "error", releaseErr)
		}
	}()

	started := s.now().UTC()
	run := model.SweepRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    model.SweepStatusRunning,
		StartedAt: started,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return model.CleanupResult{}, err
	}

	expired, err := s.trash.ListExpired(ctx, started)
	if err != nil {
		s.finish(ctx, &run, nil, started, true)
		return model.CleanupResult{RunID: run.ID}, fmt.Errorf("list expired trash: %w", err)
	}

	run.TotalItems = len(expired)
	items := make([]model.SweepItem, 0, len(expired))
	var interrupted error

	for _, record := range expired {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}

		item := model.SweepItem{
			TrashID:    record.ID,
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
		}

		result, _, err := s.trash.purge(ctx, record.ID)
		switch {
		case errors.Is(err, model.ErrTrashItemNotFound):
			// Purged by someone else since ListExpired.
			item.Outcome = model.OutcomeAlreadyGone
		case err != nil:
			run.FailedCount++
			item.Error = err.Error()
			s.trash.logDispatchError("sweep", record.ID, resultFor(record), err)
			slog.Warn("sweep skipped trash record",
				"run_id", run.ID,
				"trash_id", record.ID,
				"entity_type", record.EntityType,
				"entity_id", record.EntityID,
				"error", err,
			)
		default:
			run.DeletedCount++
			item.Outcome = result.Outcome
		}

		items = append(items, item)
	}

	s.finish(ctx, &run, items, started, false)

	slog.Info("trash sweep finished",
		"run_id", run.ID,
		"trigger", trigger,
		"status", run.Status,
		"total", run.TotalItems,
		"deleted", run.DeletedCount,
		"failed", run.FailedCount,
	)

	result := model.CleanupResult{RunID: run.ID, DeletedCount: run.DeletedCount, FailedCount: run.FailedCount}

	if s.bus != nil && (run.DeletedCount > 0 || run.FailedCount > 0) {
		s.bus.Publish(event.Event{
			Type:    event.TypeSweepCompleted,
			Message: fmt.Sprintf("%d expired items permanently deleted", run.DeletedCount),
			Payload: result,
			ActorID: actor.UserID,
		})
	}

	status := "success"
	if run.Status != model.SweepStatusCompleted {
		status = string(run.Status)
	}
	s.audit.Record(ctx, model.AuditEntry{
		Action:  model.AuditActionSweep,
		Actor:   actor,
		Status:  status,
		Details: map[string]any{"runId": run.ID, "trigger": trigger, "deletedCount": run.DeletedCount, "failedCount": run.FailedCount},
	})

	if interrupted != nil {
		return result, interrupted
	}
	return result, nil
}

func (s *Sweeper) finish(ctx context.Context, run *model.SweepRun, items []model.SweepItem, started time.Time, aborted bool) {
	finished := s.now().UTC()
	run.FinishedAt = &finished

	switch {
	case aborted:
		run.Status = model.SweepStatusFailed
	case run.FailedCount == 0 && len(items) == run.TotalItems:
		run.Status = model.SweepStatusCompleted
	case run.DeletedCount == 0 && run.FailedCount > 0:
		run.Status = model.SweepStatusFailed
	default:
		run.Status = model.SweepStatusPartial
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := s.runs.SaveItems(persistCtx, run.ID, items); err != nil {
		slog.Warn("failed to save sweep items", "run_id", run.ID, "error", err)
	}
	if err := s.runs.Update(persistCtx, *run); err != nil {
		slog.Warn("failed to update sweep run", "run_id", run.ID, "error", err)
	}

	s.metrics.ObserveSweep(run.Trigger, string(run.Status), run.DeletedCount, run.FailedCount, finished.Sub(started))
}

// Start runs one sweep immediately, then one per interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	_, err := s.Sweep(ctx, model.SweepTriggerSchedule, model.AuditActor{UserID: "system", Username: "sweeper"})
	switch {
	case err == nil:
	case errors.Is(err, model.ErrSweepInProgress):
		slog.Info("scheduled sweep skipped; another sweep holds the lock")
	case errors.Is(err, context.Canceled):
	default:
		slog.Error("scheduled sweep failed", "error", err)
	}
}

func (s *Sweeper) Runs(ctx context.Context, page int, limit int) ([]model.SweepRun, model.Meta, error) {
	page, limit = normalizePage(page, limit)

	runs, total, err := s.runs.List(ctx, page, limit)
	if err != nil {
		return nil, model.Meta{}, err
	}

	return runs, model.NewMeta(page, limit, total), nil
}

func (s *Sweeper) Run(ctx context.Context, runID string) (model.SweepRun, error) {
	if err := validateID("run id", runID); err != nil {
		return model.SweepRun{}, err
	}
	return s.runs.FindByID(ctx, runID)
}
