package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"portfolio-cms/internal/model"
)

type trashOperations interface {
	List(ctx context.Context, query model.TrashQuery) ([]model.TrashRecord, model.Meta, error)
	Get(ctx context.Context, trashID string) (model.TrashRecord, error)
	Restore(ctx context.Context, trashID string, actor model.AuditActor) (model.TrashResult, error)
	Purge(ctx context.Context, trashID string, actor model.AuditActor) (model.TrashResult, error)
}

type sweepOperations interface {
	Sweep(ctx context.Context, trigger string, actor model.AuditActor) (model.CleanupResult, error)
	Runs(ctx context.Context, page int, limit int) ([]model.SweepRun, model.Meta, error)
	Run(ctx context.Context, runID string) (model.SweepRun, error)
}

type TrashHandler struct {
	trash   trashOperations
	sweeper sweepOperations
}

func NewTrashHandler(trash trashOperations, sweeper sweepOperations) *TrashHandler {
	return &TrashHandler{trash: trash, sweeper: sweeper}
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	records, meta, err := h.trash.List(r.Context(), model.TrashQuery{
		EntityType: strings.TrimSpace(query.Get("entity_type")),
		Page:       parseIntOrDefault(query.Get("page"), 1),
		Limit:      parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.TrashRecord]{Items: records}, &meta)
}

func (h *TrashHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.trash.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	result, err := h.trash.Restore(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	result, err := h.trash.Purge(r.Context(), chi.URLParam(r, "id"), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

// Cleanup runs the expiry sweep now instead of waiting for the next tick.
func (h *TrashHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context(), model.SweepTriggerManual, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *TrashHandler) Sweeps(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	runs, meta, err := h.sweeper.Runs(
		r.Context(),
		parseIntOrDefault(query.Get("page"), 1),
		parseIntOrDefault(query.Get("limit"), 50),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.SweepRun]{Items: runs}, &meta)
}

func (h *TrashHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	run, err := h.sweeper.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, run, nil)
}
