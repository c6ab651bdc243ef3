package domain

import "time"

// WorkflowTemplate is the persisted default step list for a workflow type,
// upserted by the factory registry at startup.
type WorkflowTemplate struct {
	Type        string
	Description string
	Steps       string
	Created     time.Time
	Updated     time.Time
}
