package model

import (
	"encoding/json"
	"time"
)

// TrashRecord tracks one soft-deleted entity until it is restored or purged.
type TrashRecord struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	EntityData json.RawMessage `json:"entityData"`
	DeletedAt  time.Time       `json:"deletedAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	DeletedBy  string          `json:"deletedBy,omitempty"`
}

// Expired reports whether the record can no longer be restored at now.
func (r TrashRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type TrashQuery struct {
	EntityType string
	Page       int
	Limit      int
}

// Outcome describes what a dispatcher did to the entity row.
type Outcome string

const (
	OutcomeSoftDeleted Outcome = "soft_deleted"
	OutcomeRestored    Outcome = "restored"
	OutcomePurged      Outcome = "purged"
	OutcomeAlreadyLive Outcome = "already_live"
	OutcomeAlreadyGone Outcome = "already_gone"
)

type TrashResult struct {
	Message    string  `json:"message"`
	TrashID    string  `json:"trashId"`
	EntityType string  `json:"entityType"`
	EntityID   string  `json:"entityId"`
	Outcome    Outcome `json:"outcome"`
}

type CleanupResult struct {
	RunID        string `json:"runId,omitempty"`
	DeletedCount int    `json:"deletedCount"`
	FailedCount  int    `json:"failedCount"`
}
