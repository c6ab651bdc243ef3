package models

import "time"

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionReturn  = "return"
)

// DecisionRequest is the payload for acting on the current step of an
// instance. StepID must match the step at the current pointer; stale
// submissions are rejected.
type DecisionRequest struct {
	StepID   string `json:"stepId"`
	Action   string `json:"action"`
	Comments string `json:"comments,omitempty"`
}

type CancelInstanceRequest struct {
	Reason string `json:"reason"`
}

// StepApiResponse mirrors domain.StepDefinition for API consumers.
type StepApiResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Type         string     `json:"type"`
	AssigneeID   string     `json:"assigneeId,omitempty"`
	AssigneeRole string     `json:"assigneeRole,omitempty"`
	Status       string     `json:"status"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Comments     string     `json:"comments,omitempty"`
}

// InstanceApiResponse is a full instance snapshot decorated with the
// current step.
type InstanceApiResponse struct {
	ID               int64             `json:"id"`
	CompanyID        string            `json:"companyId"`
	Type             string            `json:"type"`
	Name             string            `json:"name"`
	ExternalID       string            `json:"externalId"`
	Status           string            `json:"status"`
	CurrentStepIndex int               `json:"currentStepIndex"`
	CurrentStep      *StepApiResponse  `json:"currentStep,omitempty"`
	Steps            []StepApiResponse `json:"steps"`
	InitiatorID      string            `json:"initiatorId"`
	InitiatorName    string            `json:"initiatorName"`
	Variables        map[string]string `json:"variables,omitempty"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          *time.Time        `json:"endDate,omitempty"`
}
