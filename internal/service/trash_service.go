package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"portfolio-cms/internal/database"
	"portfolio-cms/internal/entity"
	"portfolio-cms/internal/event"
	"portfolio-cms/internal/metrics"
	"portfolio-cms/internal/model"
)

type trashStore interface {
	Create(ctx context.Context, record model.TrashRecord) error
	FindByID(ctx context.Context, id string) (model.TrashRecord, error)
	FindByIDForUpdate(ctx context.Context, id string) (model.TrashRecord, error)
	List(ctx context.Context, query model.TrashQuery) ([]model.TrashRecord, int, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.TrashRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteByEntity(ctx context.Context, entityType string, entityID string) (int64, error)
}

type txRunner interface {
	ExecTx(ctx context.Context, fn database.TxFn) error
}

type entityRegistry interface {
	Lookup(tag string) (entity.Handler, error)
	Tags() []string
}

// TrashService owns the soft-delete lifecycle: recording, listing, restoring
// and purging trash records across every registered entity type.
type TrashService struct {
	trash     trashStore
	tx        txRunner
	registry  entityRegistry
	bus       event.Bus
	audit     *AuditService
	metrics   *metrics.Recorder
	retention time.Duration
	now       func() time.Time
}

func NewTrashService(
	trash trashStore,
	tx txRunner,
	registry entityRegistry,
	bus event.Bus,
	audit *AuditService,
	recorder *metrics.Recorder,
	retention time.Duration,
) *TrashService {
	return &TrashService{
		trash:     trash,
		tx:        tx,
		registry:  registry,
		bus:       bus,
		audit:     audit,
		metrics:   recorder,
		retention: retention,
		now:       time.Now,
	}
}

// SoftDelete stamps deleted_at on a live entity and records it in the trash,
// both in one transaction.
func (s *TrashService) SoftDelete(ctx context.Context, entityType string, entityID string, actor model.AuditActor) (model.TrashRecord, error) {
	if err := validateID("id", entityID); err != nil {
		return model.TrashRecord{}, err
	}

	handler, err := s.registry.Lookup(entityType)
	if err != nil {
		return model.TrashRecord{}, err
	}

	now := s.now().UTC()
	record := model.TrashRecord{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		DeletedAt:  now,
		ExpiresAt:  now.Add(s.retention),
		DeletedBy:  actor.UserID,
	}

	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		snapshot, err := handler.SoftDelete(ctx, entityID, now)
		if err != nil {
			return err
		}
		record.EntityData = snapshot

		// The row was live, so any record still pointing at it is stale.
		stale, err := s.trash.DeleteByEntity(ctx, entityType, entityID)
		if err != nil {
			return err
		}
		if stale > 0 {
			slog.Warn("replaced stale trash record", "entity_type", entityType, "entity_id", entityID)
		}

		return s.trash.Create(ctx, record)
	})
	if err != nil {
		s.recordFailure(ctx, model.AuditActionSoftDelete, actor, entityType, entityID, "", err)
		return model.TrashRecord{}, err
	}

	def := handler.Definition()
	slog.Info("entity moved to trash",
		"trash_id", record.ID,
		"entity_type", entityType,
		"entity_id", entityID,
		"expires_at", record.ExpiresAt,
	)

	s.publish(event.TypeEntityTrashed, fmt.Sprintf("%s moved to trash", def.Label), actor, map[string]any{
		"trashId":    record.ID,
		"entityType": entityType,
		"entityId":   entityID,
		"title":      def.DisplayName(record.EntityData),
		"expiresAt":  record.ExpiresAt,
	})
	s.audit.Record(ctx, model.AuditEntry{
		Action:     model.AuditActionSoftDelete,
		Actor:      actor,
		Status:     "success",
		EntityType: entityType,
		EntityID:   entityID,
		TrashID:    record.ID,
		Details:    map[string]any{"expiresAt": record.ExpiresAt},
	})
	s.metrics.ObserveOperation(model.AuditActionSoftDelete, entityType, "ok")

	return record, nil
}

func (s *TrashService) List(ctx context.Context, query model.TrashQuery) ([]model.TrashRecord, model.Meta, error) {
	if err := validateEntityTypeFilter(query.EntityType, s.registry.Tags()); err != nil {
		return nil, model.Meta{}, err
	}

	query.Page, query.Limit = normalizePage(query.Page, query.Limit)

	records, total, err := s.trash.List(ctx, query)
	if err != nil {
		return nil, model.Meta{}, err
	}

	return records, model.NewMeta(query.Page, query.Limit, total), nil
}

func (s *TrashService) Get(ctx context.Context, trashID string) (model.TrashRecord, error) {
	if err := validateID("trash id", trashID); err != nil {
		return model.TrashRecord{}, err
	}
	return s.trash.FindByID(ctx, trashID)
}

// ListExpired returns the records the sweeper should purge at now.
func (s *TrashService) ListExpired(ctx context.Context, now time.Time) ([]model.TrashRecord, error) {
	return s.trash.ListExpired(ctx, now)
}

// Restore clears deleted_at on the entity and drops the trash record. Expired
// records are refused without touching anything.
//
// A record whose entity is already live is a leftover from an interrupted
// restore; it is removed and reported as already_live. A record whose entity
// no longer exists is removed and ErrEntityNotFound is returned.
func (s *TrashService) Restore(ctx context.Context, trashID string, actor model.AuditActor) (model.TrashResult, error) {
	if err := validateID("trash id", trashID); err != nil {
		return model.TrashResult{}, err
	}

	var (
		result    model.TrashResult
		label     string
		orphanErr error
	)

	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		record, err := s.trash.FindByIDForUpdate(ctx, trashID)
		if err != nil {
			return err
		}
		result = resultFor(record)

		if record.Expired(s.now()) {
			return fmt.Errorf("%w: expired at %s", model.ErrTrashItemExpired, record.ExpiresAt.Format(time.RFC3339))
		}

		handler, err := s.registry.Lookup(record.EntityType)
		if err != nil {
			return err
		}
		label = handler.Definition().Label

		outcome, err := handler.Restore(ctx, record.EntityID)
		if errors.Is(err, model.ErrEntityNotFound) {
			orphanErr = err
			return s.trash.Delete(ctx, record.ID)
		}
		if err != nil {
			return err
		}
		result.Outcome = outcome

		return s.trash.Delete(ctx, record.ID)
	})
	if err == nil && orphanErr != nil {
		slog.Warn("removed trash record whose entity no longer exists",
			"trash_id", trashID,
			"entity_type", result.EntityType,
			"entity_id", result.EntityID,
		)
		err = orphanErr
	}
	if err != nil {
		s.logDispatchError("restore", trashID, result, err)
		s.recordFailure(ctx, model.AuditActionRestore, actor, result.EntityType, result.EntityID, trashID, err)
		return model.TrashResult{}, err
	}

	result.Message = fmt.Sprintf("%s restored", label)
	if result.Outcome == model.OutcomeAlreadyLive {
		result.Message = fmt.Sprintf("%s was already live; stale trash record removed", label)
		slog.Warn("stale trash record removed on restore", "trash_id", trashID, "entity_type", result.EntityType, "entity_id", result.EntityID)
	}

	s.publish(event.TypeEntityRestored, result.Message, actor, result)
	s.recordSuccess(ctx, model.AuditActionRestore, actor, result)
	s.metrics.ObserveOperation(model.AuditActionRestore, result.EntityType, "ok")

	return result, nil
}

// Purge hard-deletes the entity and drops the trash record. There is no
// expiry check: purging is allowed at any time.
func (s *TrashService) Purge(ctx context.Context, trashID string, actor model.AuditActor) (model.TrashResult, error) {
	if err := validateID("trash id", trashID); err != nil {
		return model.TrashResult{}, err
	}

	result, label, err := s.purge(ctx, trashID)
	if err != nil {
		s.logDispatchError("purge", trashID, result, err)
		s.recordFailure(ctx, model.AuditActionPurge, actor, result.EntityType, result.EntityID, trashID, err)
		return model.TrashResult{}, err
	}

	result.Message = fmt.Sprintf("%s permanently deleted", label)
	switch result.Outcome {
	case model.OutcomeAlreadyGone:
		result.Message = fmt.Sprintf("%s was already gone; trash record removed", label)
	case model.OutcomeAlreadyLive:
		result.Message = fmt.Sprintf("%s is live; stale trash record removed", label)
		slog.Warn("stale trash record removed on purge", "trash_id", trashID, "entity_type", result.EntityType, "entity_id", result.EntityID)
	}

	s.publish(event.TypeEntityPurged, result.Message, actor, result)
	s.recordSuccess(ctx, model.AuditActionPurge, actor, result)
	s.metrics.ObserveOperation(model.AuditActionPurge, result.EntityType, "ok")

	return result, nil
}

// purge is the transactional core shared by Purge and the expiry sweeper.
func (s *TrashService) purge(ctx context.Context, trashID string) (model.TrashResult, string, error) {
	var (
		result model.TrashResult
		label  string
	)

	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		record, err := s.trash.FindByIDForUpdate(ctx, trashID)
		if err != nil {
			return err
		}
		result = resultFor(record)

		handler, err := s.registry.Lookup(record.EntityType)
		if err != nil {
			return err
		}
		label = handler.Definition().Label

		outcome, err := handler.Purge(ctx, record.EntityID)
		if err != nil {
			return err
		}
		result.Outcome = outcome

		return s.trash.Delete(ctx, record.ID)
	})

	return result, label, err
}

func resultFor(record model.TrashRecord) model.TrashResult {
	return model.TrashResult{
		TrashID:    record.ID,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
	}
}

func (s *TrashService) publish(eventType event.Type, message string, actor model.AuditActor, payload any) {
	if s.bus == nil {
		return
	}

	s.bus.Publish(event.Event{
		Type:    eventType,
		Message: message,
		Payload: payload,
		ActorID: actor.UserID,
	})
}

func (s *TrashService) recordSuccess(ctx context.Context, action string, actor model.AuditActor, result model.TrashResult) {
	s.audit.Record(ctx, model.AuditEntry{
		Action:     action,
		Actor:      actor,
		Status:     "success",
		EntityType: result.EntityType,
		EntityID:   result.EntityID,
		TrashID:    result.TrashID,
		Details:    map[string]any{"outcome": result.Outcome},
	})
}

func (s *TrashService) recordFailure(ctx context.Context, action string, actor model.AuditActor, entityType string, entityID string, trashID string, err error) {
	s.audit.Record(ctx, model.AuditEntry{
		Action:     action,
		Actor:      actor,
		Status:     "failed",
		EntityType: entityType,
		EntityID:   entityID,
		TrashID:    trashID,
		Error:      err.Error(),
	})
	s.metrics.ObserveOperation(action, entityType, "error")
}

// logDispatchError makes data-integrity failures loud; routine misses stay quiet.
func (s *TrashService) logDispatchError(op string, trashID string, result model.TrashResult, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownEntityType):
		slog.Error("trash record references an unknown entity type",
			"op", op,
			"trash_id", trashID,
			"entity_type", result.EntityType,
			"entity_id", result.EntityID,
		)
	case errors.Is(err, model.ErrRestoreConflict):
		slog.Warn("restore blocked by a live row", "trash_id", trashID, "entity_type", result.EntityType, "entity_id", result.EntityID, "error", err)
	case errors.Is(err, model.ErrTrashItemNotFound),
		errors.Is(err, model.ErrTrashItemExpired),
		errors.Is(err, model.ErrEntityNotFound),
		errors.Is(err, model.ErrInvalidInput):
	default:
		slog.Error("trash dispatch failed", "op", op, "trash_id", trashID, "error", err)
	}
}
