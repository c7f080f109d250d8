package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-cms/internal/model"
	"portfolio-cms/pkg/apierror"
)

type failingAuditStore struct{ memAudit }

func (f *failingAuditStore) Log(context.Context, model.AuditEntry) error {
	return errors.New("database unavailable")
}

func TestAuditServiceRecordStampsTime(t *testing.T) {
	t.Parallel()

	store := &memAudit{}
	svc := NewAuditService(store)
	svc.now = func() time.Time { return t0 }

	svc.Record(context.Background(), model.AuditEntry{Action: model.AuditActionPurge, Status: "success"})

	require.Len(t, store.entries, 1)
	assert.Equal(t, t0, store.entries[0].OccurredAt)
}

func TestAuditServiceRecordSwallowsErrors(t *testing.T) {
	t.Parallel()

	svc := NewAuditService(&failingAuditStore{})
	svc.Record(context.Background(), model.AuditEntry{Action: model.AuditActionRestore})

	var nilService *AuditService
	nilService.Record(context.Background(), model.AuditEntry{})
}

func TestAuditServiceQuery(t *testing.T) {
	t.Parallel()

	store := &memAudit{}
	svc := NewAuditService(store)
	svc.Record(context.Background(), model.AuditEntry{Action: model.AuditActionPurge, Status: "success"})
	svc.Record(context.Background(), model.AuditEntry{Action: model.AuditActionRestore, Status: "success"})

	t.Run("filters and paginates", func(t *testing.T) {
		entries, meta, err := svc.Query(context.Background(), model.AuditQuery{Action: model.AuditActionPurge})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 1, meta.Page)
		assert.Equal(t, 50, meta.Limit)
		assert.Equal(t, 1, meta.TotalPages)
	})

	t.Run("rejects malformed time bounds", func(t *testing.T) {
		_, _, err := svc.Query(context.Background(), model.AuditQuery{From: "yesterday"})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)

		_, _, err = svc.Query(context.Background(), model.AuditQuery{To: "2026-13-01"})
		require.ErrorAs(t, err, &apiErr)
	})

	t.Run("accepts RFC3339 bounds", func(t *testing.T) {
		_, _, err := svc.Query(context.Background(), model.AuditQuery{From: "2026-01-01T00:00:00Z", To: "2026-12-31T23:59:59.5Z"})
		require.NoError(t, err)
	})
}
