package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"portfolio-cms/internal/model"
	"portfolio-cms/pkg/apierror"
)

type auditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error)
}

type AuditService struct {
	repo auditStore
	now  func() time.Time
}

func NewAuditService(repo auditStore) *AuditService {
	return &AuditService{repo: repo, now: time.Now}
}

// Record writes an audit entry. Failures are logged, never returned: the
// action being audited has already committed.
func (s *AuditService) Record(ctx context.Context, entry model.AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}

	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now().UTC()
	}

	if err := s.repo.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("failed to write audit entry",
			"action", entry.Action,
			"trash_id", entry.TrashID,
			"error", err,
		)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Page, query.Limit = normalizePage(query.Page, query.Limit)

	if err := checkAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	if err := checkAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}

	entries, total, err := s.repo.Query(ctx, query)
	if err != nil {
		return nil, model.Meta{}, err
	}

	return entries, model.NewMeta(query.Page, query.Limit, total), nil
}

func checkAuditTime(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	_, err := time.Parse(time.RFC3339Nano, trimmed)
	return err
}
