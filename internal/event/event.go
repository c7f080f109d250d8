package event

import "time"

type Type string

const (
	TypeEntityTrashed  Type = "trash.entity_deleted"
	TypeEntityRestored Type = "trash.entity_restored"
	TypeEntityPurged   Type = "trash.entity_purged"
	TypeSweepCompleted Type = "trash.sweep_completed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
}

// Bus carries post-commit notifications. Publish never blocks and never fails the caller.
type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
