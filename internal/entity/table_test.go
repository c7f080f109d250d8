package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolationDetail(t *testing.T) {
	t.Parallel()

	named := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_blogs_slug_live"})
	assert.Contains(t, uniqueViolationDetail(named), "idx_blogs_slug_live")

	assert.Equal(t, "a live row already holds the same unique value", uniqueViolationDetail(errors.New("boom")))
}

func TestNewTableHandlerQuotesReservedNames(t *testing.T) {
	t.Parallel()

	h := NewTableHandler(Definition{Tag: "references", Table: "references"}, nil)
	assert.Equal(t, `"references"`, h.table)
}
