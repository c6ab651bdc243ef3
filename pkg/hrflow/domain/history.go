package domain

import (
	"database/sql"
	"time"
)

// History actions, one per transition. The history table is append-only;
// rows are never updated or deleted.
const (
	ActionCreated       = "created"
	ActionStepStarted   = "step_started"
	ActionStepCompleted = "step_completed"
	ActionStepSkipped   = "step_skipped"
	ActionApproved      = "approved"
	ActionRejected      = "rejected"
	ActionReturned      = "returned"
	ActionCompleted     = "completed"
	ActionCancelled     = "cancelled"
)

type HistoryEntry struct {
	ID           int64
	InstanceID   int64
	CompanyID    string
	InstanceType string
	Action       string
	ActorID      string
	ActorName    string
	StepID       sql.NullString
	StepName     sql.NullString
	Description  string
	Metadata     sql.NullString
	Created      time.Time
}
