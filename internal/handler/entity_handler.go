package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio-cms/internal/model"
	"portfolio-cms/pkg/apierror"
)

type entityReader interface {
	List(ctx context.Context, query model.EntityQuery) ([]model.EntityRow, model.Meta, error)
	Get(ctx context.Context, entityType string, id string) (model.EntityRow, error)
	Types() []string
}

type softDeleter interface {
	SoftDelete(ctx context.Context, entityType string, entityID string, actor model.AuditActor) (model.TrashRecord, error)
}

type EntityHandler struct {
	entities entityReader
	trash    softDeleter
}

func NewEntityHandler(entities entityReader, trash softDeleter) *EntityHandler {
	return &EntityHandler{entities: entities, trash: trash}
}

func (h *EntityHandler) Types(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, model.ListData[string]{Items: h.entities.Types()}, nil)
}

func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rows, meta, err := h.entities.List(r.Context(), model.EntityQuery{
		EntityType: chi.URLParam(r, "entityType"),
		Page:       parseIntOrDefault(query.Get("page"), 1),
		Limit:      parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeEntityError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ListData[model.EntityRow]{Items: rows}, &meta)
}

func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.entities.Get(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "id"))
	if err != nil {
		writeEntityError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, row, nil)
}

// SoftDelete moves a live entity into the trash.
func (h *EntityHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	record, err := h.trash.SoftDelete(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "id"), actorFromRequest(r))
	if err != nil {
		writeEntityError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, record, nil)
}

// writeEntityError reports an unknown tag as a client error: on these routes
// the tag comes straight from the URL.
func writeEntityError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrUnknownEntityType) {
		writeError(w, apierror.Wrap(err, apierror.CodeUnknownEntityType, "Unknown entity type", http.StatusBadRequest))
		return
	}

	writeError(w, err)
}
