package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portfolio-cms/internal/model"
)

// Handler owns the soft-delete lifecycle of one entity table.
type Handler interface {
	Definition() Definition
	// SoftDelete stamps deleted_at on a live row and returns its pre-deletion snapshot.
	SoftDelete(ctx context.Context, id string, at time.Time) (json.RawMessage, error)
	// Restore clears deleted_at. A row that is already live yields OutcomeAlreadyLive.
	Restore(ctx context.Context, id string) (model.Outcome, error)
	// Purge hard-deletes a soft-deleted row. Live rows are never removed.
	Purge(ctx context.Context, id string) (model.Outcome, error)
	Get(ctx context.Context, id string) (model.EntityRow, error)
	List(ctx context.Context, offset int, limit int) ([]model.EntityRow, int, error)
}

// Registry maps entity-type tags to their handlers.
// Registration happens during startup; lookups are read-only afterwards.
type Registry struct {
	handlers map[string]Handler
	tags     []string
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(h Handler) error {
	tag := h.Definition().Tag
	if _, exists := r.handlers[tag]; exists {
		return fmt.Errorf("entity type %q already registered", tag)
	}

	r.handlers[tag] = h
	r.tags = append(r.tags, tag)
	return nil
}

// Lookup returns model.ErrUnknownEntityType for tags nobody registered.
func (r *Registry) Lookup(tag string) (Handler, error) {
	h, ok := r.handlers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEntityType, tag)
	}
	return h, nil
}

func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}
