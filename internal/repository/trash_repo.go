package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-cms/internal/database"
	"portfolio-cms/internal/model"
)

const trashColumns = `id::text, entity_type, entity_id::text, entity_data, deleted_at, expires_at, deleted_by`

type TrashRepository struct {
	pool *pgxpool.Pool
}

func NewTrashRepository(pool *pgxpool.Pool) *TrashRepository {
	return &TrashRepository{pool: pool}
}

func (r *TrashRepository) Create(ctx context.Context, record model.TrashRecord) error {
	_, err := database.Executor(ctx, r.pool).Exec(ctx,
		`INSERT INTO trash_records
		 (id, entity_type, entity_id, entity_data, deleted_at, expires_at, deleted_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.EntityType, record.EntityID, []byte(record.EntityData),
		record.DeletedAt, record.ExpiresAt, record.DeletedBy)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s %s already in trash: %w", record.EntityType, record.EntityID, model.ErrEntityNotFound)
	}
	if err != nil {
		return fmt.Errorf("create trash record: %w", err)
	}
	return nil
}

func (r *TrashRepository) FindByID(ctx context.Context, id string) (model.TrashRecord, error) {
	row := database.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+trashColumns+` FROM trash_records WHERE id = $1`, id)
	return scanTrashRecord(row)
}

// FindByIDForUpdate locks the trash row until the surrounding transaction ends.
// Concurrent restore and purge calls on the same record serialize here.
func (r *TrashRepository) FindByIDForUpdate(ctx context.Context, id string) (model.TrashRecord, error) {
	row := database.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+trashColumns+` FROM trash_records WHERE id = $1 FOR UPDATE`, id)
	return scanTrashRecord(row)
}

func (r *TrashRepository) List(ctx context.Context, query model.TrashQuery) ([]model.TrashRecord, int, error) {
	executor := database.Executor(ctx, r.pool)

	where := ""
	args := make([]any, 0, 3)
	if entityType := strings.TrimSpace(query.EntityType); entityType != "" {
		where = "WHERE entity_type = $1"
		args = append(args, entityType)
	}

	var total int
	if err := executor.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM trash_records %s", where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trash records: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM trash_records %s
		 ORDER BY deleted_at DESC, id
		 LIMIT $%d OFFSET $%d`, trashColumns, where, len(args)+1, len(args)+2)
	args = append(args, query.Limit, offset)

	rows, err := executor.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()

	records, err := collectTrashRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListExpired returns every record with expires_at <= now, oldest expiry first.
func (r *TrashRepository) ListExpired(ctx context.Context, now time.Time) ([]model.TrashRecord, error) {
	rows, err := database.Executor(ctx, r.pool).Query(ctx,
		`SELECT `+trashColumns+` FROM trash_records
		 WHERE expires_at <= $1
		 ORDER BY expires_at, id`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired trash: %w", err)
	}
	defer rows.Close()

	return collectTrashRecords(rows)
}

func (r *TrashRepository) Delete(ctx context.Context, id string) error {
	tag, err := database.Executor(ctx, r.pool).Exec(ctx, `DELETE FROM trash_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trash record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTrashItemNotFound
	}
	return nil
}

func (r *TrashRepository) DeleteByEntity(ctx context.Context, entityType string, entityID string) (int64, error) {
	tag, err := database.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM trash_records WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID)
	if err != nil {
		return 0, fmt.Errorf("delete trash records by entity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTrashRecord(row pgx.Row) (model.TrashRecord, error) {
	var rec model.TrashRecord
	var data []byte
	err := row.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &data,
		&rec.DeletedAt, &rec.ExpiresAt, &rec.DeletedBy)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrashRecord{}, model.ErrTrashItemNotFound
	}
	if err != nil {
		return model.TrashRecord{}, fmt.Errorf("find trash by id: %w", err)
	}
	rec.EntityData = data
	rec.DeletedAt = rec.DeletedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return rec, nil
}

func collectTrashRecords(rows pgx.Rows) ([]model.TrashRecord, error) {
	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		var rec model.TrashRecord
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &data,
			&rec.DeletedAt, &rec.ExpiresAt, &rec.DeletedBy); err != nil {
			return nil, fmt.Errorf("scan trash record: %w", err)
		}
		rec.EntityData = data
		rec.DeletedAt = rec.DeletedAt.UTC()
		rec.ExpiresAt = rec.ExpiresAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
