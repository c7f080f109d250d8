package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-cms/internal/database"
	"portfolio-cms/internal/model"
)

// SweepRepository persists expiry sweep runs and their per-record results.
type SweepRepository struct {
	pool *pgxpool.Pool
}

func NewSweepRepository(pool *pgxpool.Pool) *SweepRepository {
	return &SweepRepository{pool: pool}
}

func (r *SweepRepository) Create(ctx context.Context, run model.SweepRun) error {
	_, err := database.Executor(ctx, r.pool).Exec(ctx,
		`INSERT INTO sweep_runs (id, trigger_kind, status,
		  total_items, deleted_count, failed_count, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Trigger, string(run.Status),
		run.TotalItems, run.DeletedCount, run.FailedCount, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("create sweep run: %w", err)
	}
	return nil
}

func (r *SweepRepository) Update(ctx context.Context, run model.SweepRun) error {
	_, err := database.Executor(ctx, r.pool).Exec(ctx,
		`UPDATE sweep_runs SET status = $2, total_items = $3, deleted_count = $4,
		  failed_count = $5, finished_at = $6
		 WHERE id = $1`,
		run.ID, string(run.Status), run.TotalItems, run.DeletedCount, run.FailedCount, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("update sweep run: %w", err)
	}
	return nil
}

func (r *SweepRepository) SaveItems(ctx context.Context, runID string, items []model.SweepItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(
			`INSERT INTO sweep_run_items (run_id, item_index, trash_id, entity_type, entity_id, outcome, error_text)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, i, item.TrashID, item.EntityType, item.EntityID, string(item.Outcome), item.Error)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save sweep item: %w", err)
		}
	}

	return nil
}

func (r *SweepRepository) FindByID(ctx context.Context, runID string) (model.SweepRun, error) {
	executor := database.Executor(ctx, r.pool)

	var run model.SweepRun
	var status string
	err := executor.QueryRow(ctx,
		`SELECT id::text, trigger_kind, status, total_items, deleted_count, failed_count,
		        started_at, finished_at
		 FROM sweep_runs WHERE id = $1`, runID).
		Scan(&run.ID, &run.Trigger, &status, &run.TotalItems, &run.DeletedCount,
			&run.FailedCount, &run.StartedAt, &run.FinishedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.SweepRun{}, model.ErrSweepRunNotFound
	}
	if err != nil {
		return model.SweepRun{}, fmt.Errorf("find sweep run: %w", err)
	}
	run.Status = model.SweepStatus(status)

	rows, err := executor.Query(ctx,
		`SELECT trash_id::text, entity_type, entity_id::text, outcome, error_text
		 FROM sweep_run_items WHERE run_id = $1
		 ORDER BY item_index`, runID)
	if err != nil {
		return model.SweepRun{}, fmt.Errorf("query sweep items: %w", err)
	}
	defer rows.Close()

	run.Items = make([]model.SweepItem, 0)
	for rows.Next() {
		var item model.SweepItem
		var outcome string
		if err := rows.Scan(&item.TrashID, &item.EntityType, &item.EntityID, &outcome, &item.Error); err != nil {
			return model.SweepRun{}, fmt.Errorf("scan sweep item: %w", err)
		}
		item.Outcome = model.Outcome(outcome)
		run.Items = append(run.Items, item)
	}

	return run, rows.Err()
}

func (r *SweepRepository) List(ctx context.Context, page int, limit int) ([]model.SweepRun, int, error) {
	executor := database.Executor(ctx, r.pool)

	var total int
	if err := executor.QueryRow(ctx, `SELECT COUNT(*) FROM sweep_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sweep runs: %w", err)
	}

	rows, err := executor.Query(ctx,
		`SELECT id::text, trigger_kind, status, total_items, deleted_count, failed_count,
		        started_at, finished_at
		 FROM sweep_runs
		 ORDER BY started_at DESC
		 LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list sweep runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.SweepRun, 0)
	for rows.Next() {
		var run model.SweepRun
		var status string
		if err := rows.Scan(&run.ID, &run.Trigger, &status, &run.TotalItems, &run.DeletedCount,
			&run.FailedCount, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, 0, fmt.Errorf("scan sweep run: %w", err)
		}
		run.Status = model.SweepStatus(status)
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}
