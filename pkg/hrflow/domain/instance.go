package domain

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrDuplicateExternalID marks an insert that hit the unique
// (company_id, external_id) index; repositories wrap it so callers can
// tell a duplicate business record from a storage outage.
var ErrDuplicateExternalID = errors.New("workflow instance already exists for external id")

type StepType string

const (
	StepTypeTask      StepType = "task"
	StepTypeApproval  StepType = "approval"
	StepTypeCondition StepType = "condition"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
)

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceCancelled InstanceStatus = "cancelled"
)

// StepDefinition is one stage inside an instance's ordered step list.
// Steps are stored as a JSON array on the instance row so the step list,
// the current-step pointer and the instance status always change in a
// single row write.
type StepDefinition struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Type         StepType   `json:"type"`
	AssigneeID   string     `json:"assigneeId,omitempty"`
	AssigneeRole string     `json:"assigneeRole,omitempty"`
	Condition    string     `json:"condition,omitempty"`
	Status       StepStatus `json:"status"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Comments     string     `json:"comments,omitempty"`
}

type WorkflowInstance struct {
	ID               int64
	CompanyID        string
	Type             string
	Name             string
	ExternalID       string
	Steps            []StepDefinition
	CurrentStepIndex int
	Status           InstanceStatus
	InitiatorID      string
	InitiatorName    string
	Variables        map[string]string
	StartDate        time.Time
	Modified         time.Time
	EndDate          sql.NullTime
}

// CurrentStep returns the step at the current pointer, or nil when the
// pointer is out of range.
func (w *WorkflowInstance) CurrentStep() *StepDefinition {
	if w.CurrentStepIndex < 0 || w.CurrentStepIndex >= len(w.Steps) {
		return nil
	}
	return &w.Steps[w.CurrentStepIndex]
}

// StepByID returns the step with the given id and its index, or (nil, -1).
func (w *WorkflowInstance) StepByID(stepID string) (*StepDefinition, int) {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return &w.Steps[i], i
		}
	}
	return nil, -1
}

func (w *WorkflowInstance) IsTerminal() bool {
	return w.Status == InstanceCompleted || w.Status == InstanceCancelled
}

// MarshalSteps serializes the step list for the steps column.
func MarshalSteps(steps []StepDefinition) (string, error) {
	b, err := json.Marshal(steps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalSteps parses the steps column back into a step list.
func UnmarshalSteps(raw string) ([]StepDefinition, error) {
	if raw == "" {
		return nil, nil
	}
	var steps []StepDefinition
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, err
	}
	return steps, nil
}
