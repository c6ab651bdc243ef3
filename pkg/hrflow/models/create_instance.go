package models

// StepInput is one step supplied on instance creation. ID is optional;
// the engine assigns one when blank.
type StepInput struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type"`
	AssigneeID   string `json:"assigneeId,omitempty"`
	AssigneeRole string `json:"assigneeRole,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

// CreateInstanceRequest is the payload for starting a workflow instance.
// Either Steps is given explicitly, or Params is expanded into steps by
// the factory registered for Type.
type CreateInstanceRequest struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	ExternalID string            `json:"externalId"`
	Steps      []StepInput       `json:"steps,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

type CreateInstanceResponse struct {
	ID int64 `json:"id"`
}
