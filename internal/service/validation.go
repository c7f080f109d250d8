package service

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"portfolio-cms/internal/model"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func normalizePage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// validateID rejects ids that are not UUIDs before they reach Postgres.
func validateID(field string, id string) error {
	if err := validation.Validate(id, validation.Required, is.UUID); err != nil {
		return fmt.Errorf("%w: %s %v", model.ErrInvalidInput, field, err)
	}
	return nil
}

func validateEntityTypeFilter(entityType string, tags []string) error {
	known := make([]any, len(tags))
	for i, tag := range tags {
		known[i] = tag
	}

	if err := validation.Validate(entityType, validation.In(known...)); err != nil {
		return fmt.Errorf("%w: entity_type %v", model.ErrInvalidInput, err)
	}
	return nil
}
