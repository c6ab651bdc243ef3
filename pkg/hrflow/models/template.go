package models

import "time"

// TemplateApiResponse is a registered workflow template with its step
// shape parsed out of the stored JSON.
type TemplateApiResponse struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Steps       []StepInput `json:"steps"`
	Created     time.Time   `json:"created"`
	Updated     time.Time   `json:"updated"`
}
