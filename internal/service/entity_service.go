package service

import (
	"context"

	"portfolio-cms/internal/model"
)

// EntityService reads live rows so the dashboard can pick what to trash.
type EntityService struct {
	registry entityRegistry
}

func NewEntityService(registry entityRegistry) *EntityService {
	return &EntityService{registry: registry}
}

func (s *EntityService) List(ctx context.Context, query model.EntityQuery) ([]model.EntityRow, model.Meta, error) {
	handler, err := s.registry.Lookup(query.EntityType)
	if err != nil {
		return nil, model.Meta{}, err
	}

	query.Page, query.Limit = normalizePage(query.Page, query.Limit)

	rows, total, err := handler.List(ctx, (query.Page-1)*query.Limit, query.Limit)
	if err != nil {
		return nil, model.Meta{}, err
	}

	return rows, model.NewMeta(query.Page, query.Limit, total), nil
}

func (s *EntityService) Get(ctx context.Context, entityType string, id string) (model.EntityRow, error) {
	if err := validateID("id", id); err != nil {
		return model.EntityRow{}, err
	}

	handler, err := s.registry.Lookup(entityType)
	if err != nil {
		return model.EntityRow{}, err
	}

	return handler.Get(ctx, id)
}

// Types lists the registered entity tags in catalogue order.
func (s *EntityService) Types() []string {
	return s.registry.Tags()
}
