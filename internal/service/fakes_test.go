package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"portfolio-cms/internal/database"
	"portfolio-cms/internal/entity"
	"portfolio-cms/internal/model"
)

type fakeRow struct {
	data      map[string]any
	deletedAt *time.Time
}

// memDB is a tiny transactional store: ExecTx snapshots everything and puts
// the snapshot back when fn fails, and holds a mutex for the whole call so
// concurrent transactions serialize like row locks would.
type memDB struct {
	txMu     sync.Mutex
	entities map[string]map[string]*fakeRow
	trash    map[string]model.TrashRecord

	// liveUnique mirrors partial unique indexes: tag to a column that must be
	// unique among live rows.
	liveUnique map[string]string

	failTrashDelete error
}

func newMemDB() *memDB {
	return &memDB{
		entities:   map[string]map[string]*fakeRow{},
		trash:      map[string]model.TrashRecord{},
		liveUnique: map[string]string{model.EntityBlogs: "slug"},
	}
}

func (db *memDB) ExecTx(ctx context.Context, fn database.TxFn) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	entities, trash := db.snapshot()
	if err := fn(ctx); err != nil {
		db.entities, db.trash = entities, trash
		return err
	}
	return nil
}

func (db *memDB) snapshot() (map[string]map[string]*fakeRow, map[string]model.TrashRecord) {
	entities := make(map[string]map[string]*fakeRow, len(db.entities))
	for tag, rows := range db.entities {
		copied := make(map[string]*fakeRow, len(rows))
		for id, row := range rows {
			clone := *row
			copied[id] = &clone
		}
		entities[tag] = copied
	}

	trash := make(map[string]model.TrashRecord, len(db.trash))
	for id, rec := range db.trash {
		trash[id] = rec
	}

	return entities, trash
}

func (db *memDB) insertEntity(tag string, id string, data map[string]any) {
	if db.entities[tag] == nil {
		db.entities[tag] = map[string]*fakeRow{}
	}
	db.entities[tag][id] = &fakeRow{data: data}
}

func (db *memDB) entity(tag string, id string) (*fakeRow, bool) {
	row, ok := db.entities[tag][id]
	return row, ok
}

// trash store

func (db *memDB) Create(_ context.Context, record model.TrashRecord) error {
	for _, existing := range db.trash {
		if existing.EntityType == record.EntityType && existing.EntityID == record.EntityID {
			return fmt.Errorf("duplicate trash record: %w", model.ErrEntityNotFound)
		}
	}
	db.trash[record.ID] = record
	return nil
}

func (db *memDB) FindByID(_ context.Context, id string) (model.TrashRecord, error) {
	rec, ok := db.trash[id]
	if !ok {
		return model.TrashRecord{}, model.ErrTrashItemNotFound
	}
	return rec, nil
}

func (db *memDB) FindByIDForUpdate(ctx context.Context, id string) (model.TrashRecord, error) {
	return db.FindByID(ctx, id)
}

func (db *memDB) List(_ context.Context, query model.TrashQuery) ([]model.TrashRecord, int, error) {
	records := make([]model.TrashRecord, 0, len(db.trash))
	for _, rec := range db.trash {
		if query.EntityType != "" && rec.EntityType != query.EntityType {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].DeletedAt.After(records[j].DeletedAt) })

	total := len(records)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)
	return records[start:end], total, nil
}

func (db *memDB) ListExpired(_ context.Context, now time.Time) ([]model.TrashRecord, error) {
	records := make([]model.TrashRecord, 0)
	for _, rec := range db.trash {
		if !rec.ExpiresAt.After(now) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ExpiresAt.Before(records[j].ExpiresAt) })
	return records, nil
}

func (db *memDB) Delete(_ context.Context, id string) error {
	if db.failTrashDelete != nil {
		return db.failTrashDelete
	}
	if _, ok := db.trash[id]; !ok {
		return model.ErrTrashItemNotFound
	}
	delete(db.trash, id)
	return nil
}

func (db *memDB) DeleteByEntity(_ context.Context, entityType string, entityID string) (int64, error) {
	var n int64
	for id, rec := range db.trash {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			delete(db.trash, id)
			n++
		}
	}
	return n, nil
}

// memHandler mirrors entity.TableHandler against memDB.
type memHandler struct {
	db  *memDB
	def entity.Definition
}

func (h *memHandler) Definition() entity.Definition { return h.def }

func (h *memHandler) SoftDelete(_ context.Context, id string, at time.Time) (json.RawMessage, error) {
	row, ok := h.db.entity(h.def.Tag, id)
	if !ok || row.deletedAt != nil {
		return nil, fmt.Errorf("%s %s: %w", h.def.Tag, id, model.ErrEntityNotFound)
	}

	snapshot, err := json.Marshal(row.data)
	if err != nil {
		return nil, err
	}

	stamped := at
	row.deletedAt = &stamped
	return snapshot, nil
}

func (h *memHandler) Restore(_ context.Context, id string) (model.Outcome, error) {
	row, ok := h.db.entity(h.def.Tag, id)
	switch {
	case !ok:
		return "", fmt.Errorf("%s %s: %w", h.def.Tag, id, model.ErrEntityNotFound)
	case row.deletedAt == nil:
		return model.OutcomeAlreadyLive, nil
	}
	if column, ok := h.db.liveUnique[h.def.Tag]; ok && row.data[column] != nil {
		for otherID, other := range h.db.entities[h.def.Tag] {
			if otherID != id && other.deletedAt == nil && other.data[column] == row.data[column] {
				return "", fmt.Errorf("%w: %s %s: live row %s holds %s", model.ErrRestoreConflict, h.def.Tag, id, otherID, column)
			}
		}
	}
	row.deletedAt = nil
	return model.OutcomeRestored, nil
}

func (h *memHandler) Purge(_ context.Context, id string) (model.Outcome, error) {
	row, ok := h.db.entity(h.def.Tag, id)
	switch {
	case !ok:
		return model.OutcomeAlreadyGone, nil
	case row.deletedAt == nil:
		return model.OutcomeAlreadyLive, nil
	}
	delete(h.db.entities[h.def.Tag], id)
	return model.OutcomePurged, nil
}

func (h *memHandler) Get(_ context.Context, id string) (model.EntityRow, error) {
	row, ok := h.db.entity(h.def.Tag, id)
	if !ok || row.deletedAt != nil {
		return model.EntityRow{}, model.ErrEntityNotFound
	}
	data, _ := json.Marshal(row.data)
	return model.EntityRow{ID: id, Data: data}, nil
}

func (h *memHandler) List(_ context.Context, offset int, limit int) ([]model.EntityRow, int, error) {
	ids := make([]string, 0)
	for id, row := range h.db.entities[h.def.Tag] {
		if row.deletedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	total := len(ids)
	start := min(offset, total)
	end := min(start+limit, total)

	rows := make([]model.EntityRow, 0, end-start)
	for _, id := range ids[start:end] {
		data, _ := json.Marshal(h.db.entities[h.def.Tag][id].data)
		rows = append(rows, model.EntityRow{ID: id, Data: data})
	}
	return rows, total, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (a *memAudit) Log(_ context.Context, entry model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.AuditEntry, 0)
	for _, e := range a.entries {
		if query.Action != "" && e.Action != query.Action {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action+":"+e.Status)
	}
	return out
}

type memSweeps struct {
	mu    sync.Mutex
	runs  map[string]model.SweepRun
	order []string
}

func newMemSweeps() *memSweeps {
	return &memSweeps{runs: map[string]model.SweepRun{}}
}

func (s *memSweeps) Create(_ context.Context, run model.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return nil
}

func (s *memSweeps) Update(_ context.Context, run model.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.runs[run.ID].Items
	run.Items = items
	s.runs[run.ID] = run
	return nil
}

func (s *memSweeps) SaveItems(_ context.Context, runID string, items []model.SweepItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[runID]
	run.Items = append(run.Items, items...)
	s.runs[runID] = run
	return nil
}

func (s *memSweeps) FindByID(_ context.Context, runID string) (model.SweepRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return model.SweepRun{}, model.ErrSweepRunNotFound
	}
	return run, nil
}

func (s *memSweeps) List(_ context.Context, page int, limit int) ([]model.SweepRun, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]model.SweepRun, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	total := len(runs)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return runs[start:end], total, nil
}
