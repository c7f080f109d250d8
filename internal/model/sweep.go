package model

import "time"

type SweepStatus string

const (
	SweepStatusRunning   SweepStatus = "running"
	SweepStatusCompleted SweepStatus = "completed"
	SweepStatusPartial   SweepStatus = "partial"
	SweepStatusFailed    SweepStatus = "failed"
)

// SweepRun is one pass of the expiry sweeper, scheduled or manual.
type SweepRun struct {
	ID           string      `json:"id"`
	Trigger      string      `json:"trigger"`
	Status       SweepStatus `json:"status"`
	TotalItems   int         `json:"totalItems"`
	DeletedCount int         `json:"deletedCount"`
	FailedCount  int         `json:"failedCount"`
	StartedAt    time.Time   `json:"startedAt"`
	FinishedAt   *time.Time  `json:"finishedAt,omitempty"`
	Items        []SweepItem `json:"items,omitempty"`
}

type SweepItem struct {
	TrashID    string  `json:"trashId"`
	EntityType string  `json:"entityType"`
	EntityID   string  `json:"entityId"`
	Outcome    Outcome `json:"outcome,omitempty"`
	Error      string  `json:"error,omitempty"`
}

const (
	SweepTriggerSchedule = "schedule"
	SweepTriggerManual   = "manual"
)
