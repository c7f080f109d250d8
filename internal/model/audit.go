package model

import "time"

type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt time.Time  `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	TrashID    string     `json:"trash_id,omitempty"`
	Details    any        `json:"details,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditQuery struct {
	Action     string
	ActorID    string
	Status     string
	EntityType string
	From       string
	To         string
	Page       int
	Limit      int
}

// Audit actions recorded by the trash lifecycle.
const (
	AuditActionSoftDelete = "trash.soft_delete"
	AuditActionRestore    = "trash.restore"
	AuditActionPurge      = "trash.purge"
	AuditActionSweep      = "trash.sweep"
)
