package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-cms/internal/database"
	"portfolio-cms/internal/model"
)

// TableHandler implements Handler for a table with id, created_at,
// updated_at and deleted_at columns.
type TableHandler struct {
	def   Definition
	table string
	pool  *pgxpool.Pool
}

func NewTableHandler(def Definition, pool *pgxpool.Pool) *TableHandler {
	return &TableHandler{
		def:   def,
		table: pgx.Identifier{def.Table}.Sanitize(),
		pool:  pool,
	}
}

// NewPostgresRegistry registers a TableHandler for every catalogue entry.
func NewPostgresRegistry(pool *pgxpool.Pool) (*Registry, error) {
	defs, err := LoadCatalogue()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, def := range defs {
		if err := registry.Register(NewTableHandler(def, pool)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func (h *TableHandler) Definition() Definition {
	return h.def
}

func (h *TableHandler) SoftDelete(ctx context.Context, id string, at time.Time) (json.RawMessage, error) {
	query := fmt.Sprintf(`
		WITH prev AS (
			SELECT to_jsonb(t) AS snapshot
			FROM %[1]s t
			WHERE t.id = $1 AND t.deleted_at IS NULL
			FOR UPDATE
		)
		UPDATE %[1]s t
		SET deleted_at = $2
		FROM prev
		WHERE t.id = $1 AND t.deleted_at IS NULL
		RETURNING prev.snapshot`, h.table)

	var snapshot json.RawMessage
	err := database.Executor(ctx, h.pool).QueryRow(ctx, query, id, at).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", h.def.Tag, id, model.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("soft delete %s: %w", h.def.Tag, err)
	}

	return snapshot, nil
}

func (h *TableHandler) Restore(ctx context.Context, id string) (model.Outcome, error) {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, h.table)

	tag, err := database.Executor(ctx, h.pool).Exec(ctx, query, id)
	if database.IsUniqueViolation(err) {
		// e.g. a live blog took the slug while this one sat in the trash.
		return "", fmt.Errorf("%w: %s %s: %s", model.ErrRestoreConflict, h.def.Tag, id, uniqueViolationDetail(err))
	}
	if err != nil {
		return "", fmt.Errorf("restore %s: %w", h.def.Tag, err)
	}
	if tag.RowsAffected() == 1 {
		return model.OutcomeRestored, nil
	}

	live, err := h.rowState(ctx, id)
	if err != nil {
		return "", err
	}
	if live {
		return model.OutcomeAlreadyLive, nil
	}

	// rowState only returns (false, nil) for a soft-deleted row, which the
	// UPDATE above would have matched.
	return "", fmt.Errorf("restore %s %s: row changed concurrently", h.def.Tag, id)
}

func (h *TableHandler) Purge(ctx context.Context, id string) (model.Outcome, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND deleted_at IS NOT NULL`, h.table)

	tag, err := database.Executor(ctx, h.pool).Exec(ctx, query, id)
	if err != nil {
		return "", fmt.Errorf("purge %s: %w", h.def.Tag, err)
	}
	if tag.RowsAffected() == 1 {
		return model.OutcomePurged, nil
	}

	live, err := h.rowState(ctx, id)
	if errors.Is(err, model.ErrEntityNotFound) {
		return model.OutcomeAlreadyGone, nil
	}
	if err != nil {
		return "", err
	}
	if live {
		return model.OutcomeAlreadyLive, nil
	}

	return "", fmt.Errorf("purge %s %s: row changed concurrently", h.def.Tag, id)
}

func (h *TableHandler) Get(ctx context.Context, id string) (model.EntityRow, error) {
	query := fmt.Sprintf(`
		SELECT id::text, to_jsonb(t) - 'deleted_at', created_at, updated_at
		FROM %s t
		WHERE t.id = $1 AND t.deleted_at IS NULL`, h.table)

	var row model.EntityRow
	err := database.Executor(ctx, h.pool).QueryRow(ctx, query, id).
		Scan(&row.ID, &row.Data, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.EntityRow{}, fmt.Errorf("%s %s: %w", h.def.Tag, id, model.ErrEntityNotFound)
	}
	if err != nil {
		return model.EntityRow{}, fmt.Errorf("get %s: %w", h.def.Tag, err)
	}

	return row, nil
}

func (h *TableHandler) List(ctx context.Context, offset int, limit int) ([]model.EntityRow, int, error) {
	executor := database.Executor(ctx, h.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL`, h.table)
	if err := executor.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", h.def.Tag, err)
	}

	query := fmt.Sprintf(`
		SELECT id::text, to_jsonb(t) - 'deleted_at', created_at, updated_at
		FROM %s t
		WHERE t.deleted_at IS NULL
		ORDER BY t.created_at DESC, t.id
		LIMIT $1 OFFSET $2`, h.table)

	rows, err := executor.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", h.def.Tag, err)
	}
	defer rows.Close()

	items := make([]model.EntityRow, 0)
	for rows.Next() {
		var row model.EntityRow
		if err := rows.Scan(&row.ID, &row.Data, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", h.def.Tag, err)
		}
		items = append(items, row)
	}

	return items, total, rows.Err()
}

// rowState reports whether the row is live. A missing row yields model.ErrEntityNotFound.
func (h *TableHandler) rowState(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT deleted_at IS NULL FROM %s WHERE id = $1`, h.table)

	var live bool
	err := database.Executor(ctx, h.pool).QueryRow(ctx, query, id).Scan(&live)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s %s: %w", h.def.Tag, id, model.ErrEntityNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("check %s state: %w", h.def.Tag, err)
	}

	return live, nil
}

func uniqueViolationDetail(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return fmt.Sprintf("a live row already holds the same value for unique constraint %s", pgErr.ConstraintName)
	}
	return "a live row already holds the same unique value"
}
