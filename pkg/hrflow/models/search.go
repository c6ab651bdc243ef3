package models

import "time"

// SearchInstancesRequest filters the instance list. CompanyID is always
// set from the session by the controller, never trusted from the body.
type SearchInstancesRequest struct {
	CompanyID   string `json:"-"`
	ID          int64  `json:"id,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
	InitiatorID string `json:"initiatorId,omitempty"`
	Limit       int64  `json:"limit,omitempty"`
	Offset      int64  `json:"offset,omitempty"`
}

type SearchInstancesResponse struct {
	Results   int                   `json:"results"`
	Offset    int64                 `json:"offset"`
	Instances []InstanceApiResponse `json:"instances"`
}

// HistoryQuery filters the audit trail. Zero values mean "no filter".
type HistoryQuery struct {
	CompanyID  string
	InstanceID int64
	Type       string
	Action     string
	ActorID    string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int64
	Offset     int64
}

type HistoryEntryApiResponse struct {
	ID           int64     `json:"id"`
	InstanceID   int64     `json:"instanceId"`
	CompanyID    string    `json:"companyId"`
	InstanceType string    `json:"instanceType"`
	Action       string    `json:"action"`
	ActorID      string    `json:"actorId"`
	ActorName    string    `json:"actorName"`
	StepID       string    `json:"stepId,omitempty"`
	StepName     string    `json:"stepName,omitempty"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata,omitempty"`
	Created      time.Time `json:"created"`
}

type HistoryQueryResponse struct {
	Total   int64                     `json:"total"`
	Offset  int64                     `json:"offset"`
	Entries []HistoryEntryApiResponse `json:"entries"`
}
